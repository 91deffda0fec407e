package checksum

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// BenchmarkFile is the JSON file holding the reference checksums of a test
func BenchmarkFile(dir, testName string) string {
	return filepath.Join(dir, testName+".json")
}

func LoadBenchmark(dir, testName string) (d Data, err error) {
	var (
		b    []byte
		name = BenchmarkFile(dir, testName)
	)
	if b, err = os.ReadFile(name); err != nil {
		return nil, fmt.Errorf("unable to read benchmark for test %s: %w", testName, err)
	}
	if err = json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", name, err)
	}
	return
}

// SaveBenchmark replaces the benchmark of a test with d
func SaveBenchmark(dir, testName string, d Data) (err error) {
	var b []byte
	if b, err = json.MarshalIndent(d, "", "  "); err != nil {
		return
	}
	if err = os.MkdirAll(dir, 0755); err != nil {
		return
	}
	return os.WriteFile(BenchmarkFile(dir, testName), append(b, '\n'), 0644)
}
