package querydef

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a definition from path. The format follows the extension:
// .yaml, .yml and .json are decoded as YAML, .cue as CUE. A directory is
// loaded as a CUE package.
func LoadFile(path string) (*Definition, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definition not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definition: %v", err)}
	}
	if info.IsDir() {
		return LoadCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("failed to read definition: %v", err)}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return LoadYAML(data)
	case ".cue":
		return LoadCUE(filepath.Base(path), data)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported definition format %q", filepath.Ext(path))}
	}
}

// LoadYAML decodes a definition, rejecting unknown fields.
func LoadYAML(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return &def, nil
}

// LoadCUE compiles a single CUE source. The top-level value is the
// definition; it must be concrete.
func LoadCUE(filename string, src []byte) (*Definition, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	return decodeCUE(value)
}

// LoadCUEDir loads the CUE package in dir, unifying all of its files.
func LoadCUEDir(dir string) (*Definition, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	return decodeCUE(ctx.BuildInstance(inst))
}

// decodeCUE exports a concrete value to JSON and decodes it with the YAML
// decoder, so both formats share one set of field rules.
func decodeCUE(value cue.Value) (*Definition, error) {
	if err := value.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}
	data, err := value.MarshalJSON()
	if err != nil {
		return nil, cueError(err)
	}
	return LoadYAML(data)
}

func cueError(err error) *LoadError {
	le := &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Pos = errs[0].Position()
	}
	return le
}
