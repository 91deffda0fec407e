package InputParameters

import (
	"fmt"
	"os"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file, they override the constants and
// tolerances built into an analysis
type InputParameters struct {
	Title        string             `json:"Title"`
	OutputFormat string             `json:"OutputFormat"`
	Rtol         float64            `json:"Rtol"`
	Atol         float64            `json:"Atol"`
	Constants    map[string]float64 `json:"Constants"` // keyed by the constant's name in the analysis
}

func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// Read parses a YAML parameter file
func Read(filename string) (ip *InputParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(filename); err != nil {
		return nil, fmt.Errorf("unable to read parameter file: %w", err)
	}
	ip = &InputParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("unable to parse parameter file %s: %w", filename, err)
	}
	return
}

// Constant returns the override for name, or def when there is none
func (ip *InputParameters) Constant(name string, def float64) float64 {
	if ip == nil {
		return def
	}
	if v, ok := ip.Constants[name]; ok {
		return v
	}
	return def
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	if ip.OutputFormat != "" {
		fmt.Printf("[%s]\t\t= Output Format\n", ip.OutputFormat)
	}
	if ip.Rtol != 0 {
		fmt.Printf("%8.3e\t\t= Rtol\n", ip.Rtol)
	}
	if ip.Atol != 0 {
		fmt.Printf("%8.3e\t\t= Atol\n", ip.Atol)
	}
	keys := make([]string, len(ip.Constants))
	i := 0
	for k := range ip.Constants {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("Constants[%s] = %v\n", key, ip.Constants[key])
	}
}
