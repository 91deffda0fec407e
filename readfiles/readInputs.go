package readfiles

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const usedInputsFile = "warpx_used_inputs"

// ReadInputs parses a ParmParse style inputs file of "key = value" lines.
// Comments start with # and a repeated key keeps its last value.
func ReadInputs(name string) (params map[string]string, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(name); err != nil {
		return nil, err
	}
	defer file.Close()
	params = make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if ind := strings.Index(line, "#"); ind >= 0 {
			line = line[:ind]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ind := strings.Index(line, "=")
		if ind < 0 {
			return nil, fmt.Errorf("%s:%d: badly formed input line [%s], should have an =", name, lineNo, line)
		}
		key := strings.TrimSpace(line[:ind])
		val := strings.Trim(strings.TrimSpace(line[ind+1:]), `"`)
		params[key] = val
	}
	return params, scanner.Err()
}

// Parameters returns the inputs the simulation was run with, read from warpx_used_inputs
func (pf *Plotfile) Parameters() (params map[string]string, err error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.params == nil {
		if pf.params, err = ReadInputs(filepath.Join(pf.Dir, usedInputsFile)); err != nil {
			return nil, fmt.Errorf("plotfile %s: %w", pf.Dir, err)
		}
	}
	return pf.params, nil
}

func (pf *Plotfile) Param(key string) (val string, err error) {
	var (
		params map[string]string
		ok     bool
	)
	if params, err = pf.Parameters(); err != nil {
		return
	}
	if val, ok = params[key]; !ok {
		err = fmt.Errorf("plotfile %s: parameter %q not found", pf.Dir, key)
	}
	return
}

func (pf *Plotfile) ParamFloats(key string) (vals []float64, err error) {
	var val string
	if val, err = pf.Param(key); err != nil {
		return
	}
	if vals, err = parseFloats(val); err != nil {
		err = fmt.Errorf("parameter %s: %w", key, err)
	}
	return
}

func (pf *Plotfile) ParamInts(key string) (vals []int, err error) {
	var val string
	if val, err = pf.Param(key); err != nil {
		return
	}
	if vals, err = parseInts(val); err != nil {
		err = fmt.Errorf("parameter %s: %w", key, err)
	}
	return
}
