package engine

import "encoding/json"

// TxResult is the response envelope for POST /tx.
type TxResult struct {
	TxID         string  `json:"txId"`
	Accepted     bool    `json:"accepted"`
	StateVersion *uint64 `json:"stateVersion,omitempty"`
	ErrorCode    string  `json:"errorCode,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// outcome is what a transaction handler reports back to the dispatcher.
// status is 200 for business outcomes (accepted or rejected), 400 for
// per-field validation (never cached), 401/403 for authorization and 500
// for infrastructure failures.
type outcome struct {
	accepted bool
	status   int
	code     string
	message  string
}

func accept() outcome {
	return outcome{accepted: true, status: 200}
}

func reject(code, message string) outcome {
	return outcome{status: 200, code: code, message: message}
}

func invalid(message string) outcome {
	return outcome{status: 400, code: CodeValidation, message: message}
}

func denied(status int, code, message string) outcome {
	return outcome{status: status, code: code, message: message}
}

func infra(code, message string) outcome {
	return outcome{status: 500, code: code, message: message}
}

// renderResult marshals a TxResult once; the dispatcher stores the exact
// bytes in the idempotency log so replays are byte-identical.
func renderResult(txID string, version *uint64, o outcome) []byte {
	res := TxResult{
		TxID:         txID,
		Accepted:     o.accepted,
		StateVersion: version,
		ErrorCode:    o.code,
		ErrorMessage: o.message,
	}
	body, _ := json.Marshal(res)
	return body
}
