package checksum

import "sync"

// EvaluatorCall is one recorded EvaluateChecksum invocation
type EvaluatorCall struct {
	TestName string
	Path     string
	Options  Options
}

// RecordingEvaluator records checksum requests instead of evaluating them and returns Err
type RecordingEvaluator struct {
	mu    sync.Mutex
	Calls []EvaluatorCall
	Err   error
}

func (r *RecordingEvaluator) EvaluateChecksum(testName, path string, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, EvaluatorCall{TestName: testName, Path: path, Options: opts})
	return r.Err
}
