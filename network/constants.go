package network

import "time"

const (
	// This prevents hung requests.
	GRPCDefaultDeadline = 30 * time.Second

	// The maximum inbound gRPC message size (bytes); full registrations can be large
	GRPCMaxRecvMsgSize = 64 * 1024 * 1024
	// The maximum outbound gRPC message size (bytes)
	GRPCMaxSendMsgSize = 4 * 1024 * 1024

	serviceName              = "blockworker.BlockMasterService"
	registerWorkerMethod     = "/" + serviceName + "/RegisterWorker"
	blockHeartbeatMethod     = "/" + serviceName + "/BlockHeartbeat"
	registerWorkerMethodName = "RegisterWorker"
	blockHeartbeatMethodName = "BlockHeartbeat"
)
