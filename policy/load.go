package policy

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/etlerr"
	"gopkg.in/yaml.v3"
)

// Load decodes a YAML (or JSON) policy document. Keys left out keep the
// defaults of Strict.
func Load(r io.Reader) (Policy, error) {
	p := Strict()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Policy{}, etlerr.NewConfigurationErrorf("error decoding policy: %v", err)
	}
	if err := p.Verify(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadFile loads the policy document at path.
func LoadFile(path string) (Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return Policy{}, errors.Wrapf(err, "error opening policy file")
	}
	defer func() { _ = f.Close() }()
	p, err := Load(f)
	if err != nil {
		return Policy{}, errors.Wrapf(err, "policy file %s", path)
	}
	return p, nil
}
