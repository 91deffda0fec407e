package openpmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/scigolib/hdf5"
)

var iterationPathRE = regexp.MustCompile(`^/data/(\d+)(/.*)?$`)

// hdf5Backend serves file based (one file per iteration) and group based
// (all iterations in one file) series written with the HDF5 openPMD backend
type hdf5Backend struct {
	mu    sync.Mutex
	files []*hdf5File
	byIt  map[int]*hdf5File
}

type hdf5File struct {
	name    string
	f       *hdf5.File
	objects map[string]interface{} // path relative to /data/<it>/ -> *hdf5.Group or *hdf5.Dataset
	its     map[int]bool
}

// OpenSeries opens an openPMD series from a directory of .h5 files or a single file
func OpenSeries(path string) (s *Series, err error) {
	var (
		names []string
		info  os.FileInfo
	)
	if info, err = os.Stat(path); err != nil {
		return nil, fmt.Errorf("unable to open openPMD series: %w", err)
	}
	if info.IsDir() {
		if names, err = filepath.Glob(filepath.Join(path, "*.h5")); err != nil {
			return
		}
	} else {
		names = []string{path}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("openPMD series %s: no HDF5 files found", path)
	}
	sort.Strings(names)
	b := &hdf5Backend{byIt: make(map[int]*hdf5File)}
	for _, name := range names {
		var hf *hdf5File
		if hf, err = openHDF5File(name); err != nil {
			b.Close()
			return nil, err
		}
		b.files = append(b.files, hf)
		for it := range hf.its {
			b.byIt[it] = hf
		}
	}
	return NewSeries(path, b)
}

func openHDF5File(name string) (hf *hdf5File, err error) {
	hf = &hdf5File{name: name, objects: make(map[string]interface{}), its: make(map[int]bool)}
	if hf.f, err = hdf5.Open(name); err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", name, err)
	}
	hf.f.Walk(func(path string, obj hdf5.Object) {
		m := iterationPathRE.FindStringSubmatch(strings.TrimSuffix(path, "/"))
		if m == nil {
			return
		}
		it, _ := strconv.Atoi(m[1])
		hf.its[it] = true
		rel := strings.Trim(m[2], "/")
		switch v := obj.(type) {
		case *hdf5.Group, *hdf5.Dataset:
			hf.objects[key(it, rel)] = v
		}
	})
	return
}

func key(it int, rel string) string {
	return strconv.Itoa(it) + ":" + rel
}

func (b *hdf5Backend) Iterations() (its []int, err error) {
	for it := range b.byIt {
		its = append(its, it)
	}
	sort.Ints(its)
	return
}

func (b *hdf5Backend) file(iteration int) (*hdf5File, error) {
	hf, ok := b.byIt[iteration]
	if !ok {
		return nil, fmt.Errorf("iteration %d not found", iteration)
	}
	return hf, nil
}

func (b *hdf5Backend) List(iteration int, path string) (names []string, err error) {
	var hf *hdf5File
	if hf, err = b.file(iteration); err != nil {
		return
	}
	path = strings.Trim(path, "/")
	obj, ok := hf.objects[key(iteration, path)]
	if !ok {
		return nil, fmt.Errorf("%s: group %q not found in iteration %d", hf.name, path, iteration)
	}
	if _, isDataset := obj.(*hdf5.Dataset); isDataset {
		return nil, nil
	}
	prefix := key(iteration, path+"/")
	for k := range hf.objects {
		if strings.HasPrefix(k, prefix) && !strings.Contains(k[len(prefix):], "/") {
			names = append(names, k[len(prefix):])
		}
	}
	sort.Strings(names)
	return
}

func (b *hdf5Backend) Component(iteration int, path string) (c *Component, err error) {
	var hf *hdf5File
	if hf, err = b.file(iteration); err != nil {
		return
	}
	path = strings.Trim(path, "/")
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := hf.objects[key(iteration, path)]
	if !ok {
		return nil, fmt.Errorf("%s: record component %q not found in iteration %d", hf.name, path, iteration)
	}
	c = &Component{UnitSI: 1}
	switch v := obj.(type) {
	case *hdf5.Dataset:
		if c.Data, err = v.Read(); err != nil {
			return nil, fmt.Errorf("%s: reading %q: %w", hf.name, path, err)
		}
		attrs, aerr := v.Attributes()
		if aerr == nil {
			for _, a := range attrs {
				if a.Name == "unitSI" {
					if val, rerr := a.ReadValue(); rerr == nil {
						c.UnitSI, _ = toFloat(val)
					}
				}
			}
		}
	case *hdf5.Group:
		// Constant record components are groups carrying value and shape attributes
		attrs, aerr := v.Attributes()
		if aerr != nil {
			return nil, fmt.Errorf("%s: %q is not a record component: %w", hf.name, path, aerr)
		}
		for _, a := range attrs {
			val, rerr := a.ReadValue()
			if rerr != nil {
				continue
			}
			switch a.Name {
			case "value":
				c.Constant = true
				c.Value, _ = toFloat(val)
			case "shape":
				c.Shape = toInts(val)
			case "unitSI":
				c.UnitSI, _ = toFloat(val)
			}
		}
		if !c.Constant {
			return nil, fmt.Errorf("%s: %q is a group, not a record component", hf.name, path)
		}
	}
	return
}

func (b *hdf5Backend) Close() (err error) {
	for _, hf := range b.files {
		if cerr := hf.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int64:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []uint64:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

func toInts(v interface{}) (out []int) {
	switch x := v.(type) {
	case []uint64:
		for _, s := range x {
			out = append(out, int(s))
		}
	case []int64:
		for _, s := range x {
			out = append(out, int(s))
		}
	case []int32:
		for _, s := range x {
			out = append(out, int(s))
		}
	case []uint32:
		for _, s := range x {
			out = append(out, int(s))
		}
	default:
		if f, ok := toFloat(v); ok {
			out = []int{int(f)}
		}
	}
	return
}
