package knowledge

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/causeway/pkg/errors"
)

// File is the on-disk form of Knowledge:
//
//	[[forbidden]]
//	from = "income"
//	to = "age"
//
//	[[required]]
//	from = "age"
//	to = "income"
//
//	[[tier]]
//	variables = ["age", "sex"]
//
// Tiers are numbered by their position in the file.
type File struct {
	Forbidden []Pair     `json:"forbidden,omitempty" toml:"forbidden,omitempty"`
	Required  []Pair     `json:"required,omitempty" toml:"required,omitempty"`
	Tiers     []TierSpec `json:"tiers,omitempty" toml:"tier,omitempty"`
}

// TierSpec lists the variables of one tier.
type TierSpec struct {
	Variables []string `json:"variables" toml:"variables"`
}

// Knowledge converts f into an immutable Knowledge value.
func (f File) Knowledge() Knowledge {
	k := New()
	for _, p := range f.Forbidden {
		k = k.Forbid(p.From, p.To)
	}
	for _, p := range f.Required {
		k = k.Require(p.From, p.To)
	}
	for t, spec := range f.Tiers {
		k = k.WithTier(t, spec.Variables...)
	}
	return k
}

// File returns the serialisable form of k.
func (k Knowledge) File() File {
	f := File{Forbidden: k.Forbidden(), Required: k.Required()}
	for _, t := range k.Tiers() {
		f.Tiers = append(f.Tiers, TierSpec{Variables: t})
	}
	return f
}

// Parse decodes TOML knowledge and validates it.
func Parse(data []byte) (Knowledge, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return Knowledge{}, errors.Wrap(errors.ErrCodeInvalidKnowledge, err, "parse knowledge")
	}
	k := f.Knowledge()
	if err := k.Validate(); err != nil {
		return Knowledge{}, err
	}
	return k, nil
}

// Load reads and parses a TOML knowledge file.
func Load(path string) (Knowledge, error) {
	if err := errors.ValidatePath(path); err != nil {
		return Knowledge{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Knowledge{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read knowledge %s", path)
	}
	if err != nil {
		return Knowledge{}, errors.Wrap(errors.ErrCodeInvalidKnowledge, err, "read knowledge %s", path)
	}
	return Parse(data)
}

// Encode writes k as TOML.
func (k Knowledge) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(k.File()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
