package model

import (
	"bytes"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	_ "embed"
)

//go:embed job.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Job"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

// Job is the persisted job definition: one build step plus the
// settings of the host the step runs on.
type Job struct {
	Version int              `yaml:"version"`
	Step    RunConfiguration `yaml:"step"`
	Publish Publish          `yaml:"publish,omitempty"`
	Log     Log              `yaml:"log,omitempty"`
}

// Publish lists the places results are archived to, in addition to the build log.
type Publish struct {
	Dir        string      `yaml:"dir,omitempty"`        // copy of every results file
	Record     string      `yaml:"record,omitempty"`     // sqlite build record
	Repository *Repository `yaml:"repository,omitempty"` // remote report server
}

type Repository struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	URL     string `yaml:"url"`
}

func (r *Repository) IsEnabled() bool {
	if r == nil {
		return false
	}
	return r.Enabled == nil || *r.Enabled
}

type Log struct {
	Verbose bool `yaml:"verbose,omitempty"`
}

func DefaultJob() Job {
	return Job{
		Version: 0,
		Step:    *NewRunConfiguration(DefaultClientPath, DefaultEndpoint),
	}
}

// LoadJob validates YAML from r against the CUE schema and decodes it.
func LoadJob(r io.Reader) (*Job, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}

	yamlFile, err := cueyaml.Extract("job.yaml", raw)
	if err != nil {
		return nil, err
	}
	unified := schema.Unify(cueCtx.BuildFile(yamlFile))
	if err := unified.Validate(
		cue.All(),
		cue.Concrete(true),
	); err != nil {
		return nil, err
	}

	var job Job
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decoding job file: %w", err)
	}
	return &job, nil
}

// Encode writes the job definition as YAML.
func (j Job) Encode(w io.Writer) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(j); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
