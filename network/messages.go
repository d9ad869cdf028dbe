package network

import "github.com/mezonai/blockworker/block"

// CommandType is the instruction a master piggybacks on a heartbeat response.
type CommandType string

const (
	// CommandNothing asks nothing of the worker.
	CommandNothing CommandType = "nothing"
	// CommandRegister asks the worker to register again with its full block list.
	CommandRegister CommandType = "register"
	// CommandFree asks the worker to remove the listed blocks.
	CommandFree CommandType = "free"
)

type Command struct {
	Type     CommandType     `json:"type"`
	BlockIDs []block.BlockID `json:"block_ids,omitempty"`
}

// LocationBlocks lists block ids stored under one location.
type LocationBlocks struct {
	TierAlias string          `json:"tier_alias"`
	Dir       string          `json:"dir"`
	BlockIDs  []block.BlockID `json:"block_ids"`
}

type RegisterWorkerRequest struct {
	WorkerID string           `json:"worker_id"`
	Address  string           `json:"address"`
	Blocks   []LocationBlocks `json:"blocks"`
}

type RegisterWorkerResponse struct {
	Accepted bool `json:"accepted"`
}

// HeartbeatRequest is the wire form of a reporter.Report.
type HeartbeatRequest struct {
	WorkerID    string              `json:"worker_id"`
	Added       []LocationBlocks    `json:"added"`
	Removed     []block.BlockID     `json:"removed"`
	LostStorage map[string][]string `json:"lost_storage"`
}

type HeartbeatResponse struct {
	Command Command `json:"command"`
}
