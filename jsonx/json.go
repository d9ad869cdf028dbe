package jsonx

import jsoniter "github.com/json-iterator/go"

// api matches encoding/json behaviour so wire payloads stay interchangeable with other peers.
var api = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

// MarshalToString is used for log lines; encoding errors are folded into the returned text.
func MarshalToString(v interface{}) string {
	s, err := api.MarshalToString(v)
	if err != nil {
		return "<unencodable: " + err.Error() + ">"
	}
	return s
}
