package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// QpuConfiguration describes a QPU node's capabilities as reported by
// GET /qpu/config.
type QpuConfiguration struct {
	NumRequiredQubits int    `json:"num_required_qubits" yaml:"num_required_qubits"`
	QpuIPAddress      string `json:"qpu_ip_address" yaml:"qpu_ip_address"`
	QpuPort           string `json:"qpu_port" yaml:"qpu_port"`
}

// UnmarshalJSON accepts the private "_num_required_qubits" key some nodes
// emit, and a port given either as a string or a number.
func (q *QpuConfiguration) UnmarshalJSON(data []byte) error {
	var raw struct {
		NumRequiredQubits *int            `json:"num_required_qubits"`
		PrivateQubits     *int            `json:"_num_required_qubits"`
		QpuIPAddress      string          `json:"qpu_ip_address"`
		QpuPort           json.RawMessage `json:"qpu_port"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.NumRequiredQubits != nil:
		q.NumRequiredQubits = *raw.NumRequiredQubits
	case raw.PrivateQubits != nil:
		q.NumRequiredQubits = *raw.PrivateQubits
	}
	q.QpuIPAddress = raw.QpuIPAddress

	if len(raw.QpuPort) == 0 || string(raw.QpuPort) == "null" {
		q.QpuPort = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.QpuPort, &s); err == nil {
		q.QpuPort = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.QpuPort, &n); err != nil {
		return fmt.Errorf("qpu_port: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("qpu_port: %w", err)
	}
	q.QpuPort = n.String()
	return nil
}

// IsCompatible reports whether other fits within q. With superset set the
// check is reversed: q must fit within other.
func (q QpuConfiguration) IsCompatible(other QpuConfiguration, superset bool) bool {
	if superset {
		return other.IsCompatible(q, false)
	}
	return q.NumRequiredQubits >= other.NumRequiredQubits
}
