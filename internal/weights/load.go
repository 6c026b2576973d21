package weights

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaCUE constrains a weight table document. Omitted reads, writes and
// per_item default to zero.
const schemaCUE = `
#Weight: int & >=0

#Entry: {
	base:     #Weight
	per_item: *0 | #Weight
	reads:    *0 | (int & >=0)
	writes:   *0 | (int & >=0)
}

#Table: {
	db?: {
		read:  #Weight
		write: #Weight
	}
	calls?: [string]: #Entry
}
`

//go:embed default_weights.cue
var defaultWeightsCUE []byte

type tableDoc struct {
	DB    *dbDoc              `json:"db,omitempty"`
	Calls map[string]entryDoc `json:"calls,omitempty"`
}

type dbDoc struct {
	Read  uint64 `json:"read"`
	Write uint64 `json:"write"`
}

type entryDoc struct {
	Base    uint64 `json:"base"`
	PerItem uint64 `json:"per_item"`
	Reads   uint64 `json:"reads"`
	Writes  uint64 `json:"writes"`
}

// LoadFile reads a CUE weight table and layers it over DefaultTable.
// Calls the file does not mention keep their default formula.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read weight table: %w", err)
	}
	return Parse(data, path)
}

// Parse compiles a CUE weight table document and layers it over DefaultTable.
// filename is used in error positions only.
func Parse(data []byte, filename string) (Table, error) {
	ctx := cuecontext.New()

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Table{}, formatCUEError(filename, err)
	}
	if err := checkTopLevel(file); err != nil {
		return Table{}, fmt.Errorf("%s: %w", filename, err)
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("weights-schema.cue"))
	if err := schema.Err(); err != nil {
		return Table{}, formatCUEError("weights-schema.cue", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Table")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Table{}, formatCUEError(filename, err)
	}

	var doc tableDoc
	if err := v.Decode(&doc); err != nil {
		return Table{}, formatCUEError(filename, err)
	}

	table := DefaultTable()
	if doc.DB != nil {
		table.DB = DBWeight{Read: Weight(doc.DB.Read), Write: Weight(doc.DB.Write)}
	}
	for name, e := range doc.Calls {
		table.Entries[name] = Entry{
			Base:    Weight(e.Base),
			PerItem: Weight(e.PerItem),
			Reads:   e.Reads,
			Writes:  e.Writes,
		}
	}

	if err := table.Validate(); err != nil {
		return Table{}, fmt.Errorf("%s: %w", filename, err)
	}
	return table, nil
}

// DefaultDocument returns the CUE document equivalent of DefaultTable.
func DefaultDocument() []byte {
	out := make([]byte, len(defaultWeightsCUE))
	copy(out, defaultWeightsCUE)
	return out
}

// checkTopLevel rejects fields other than db and calls, catching typos
// like "call:" that would otherwise be silently ignored.
func checkTopLevel(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return fmt.Errorf("weight table must be a struct: %w", err)
	}
	for iter.Next() {
		switch label := iter.Selector().String(); label {
		case "db", "calls":
		default:
			return fmt.Errorf("unknown field %q (want db or calls)", label)
		}
	}
	return nil
}

func formatCUEError(filename string, err error) error {
	return fmt.Errorf("%s: invalid weight table: %s", filename, cueerrors.Details(err, nil))
}
