// Package image serializes compiled procedure contexts into a
// self-describing executable image: the type-level literal and constant
// tables plus, per procedure, the interned symbol tables and the packed
// bytecode. Images use canonical CBOR so equal inputs encode to equal
// bytes.
package image

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/pkg/bytecode"
)

// Version is the current image format version. Increment on
// incompatible changes.
const Version uint16 = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Constant is one ordered entry of the type's constant table.
type Constant struct {
	Symbol string `cbor:"symbol"`
	Value  string `cbor:"value"`
}

// Procedure is the serialized form of one compiled procedure context.
type Procedure struct {
	Name       string         `cbor:"name"`
	Parameters []string       `cbor:"parameters"`
	Variables  []string       `cbor:"variables"`
	Procedures []string       `cbor:"procedures"`
	Addresses  map[string]int `cbor:"addresses"`
	Assembly   string         `cbor:"assembly"`

	// Bytecode holds the packed words as big-endian bytes, two per
	// word, most-significant byte first.
	Bytecode []byte `cbor:"bytecode"`
}

// Image is one type's executable interchange form.
type Image struct {
	Version    uint16      `cbor:"version"`
	BuildID    string      `cbor:"buildId"`
	Literals   []string    `cbor:"literals"`
	Constants  []Constant  `cbor:"constants"`
	Procedures []Procedure `cbor:"procedures"`
}

// Build assembles an image from a type context and its named procedure
// contexts. Procedures are ordered by name so images are reproducible;
// each build gets a fresh build identifier.
func Build(types *compiler.TypeContext, procedures map[string]*compiler.ProcedureContext) *Image {
	im := &Image{
		Version:  Version,
		BuildID:  uuid.NewString(),
		Literals: types.Literals.Values(),
	}
	for _, symbol := range types.Constants.Symbols() {
		value, _ := types.Constants.Value(symbol)
		im.Constants = append(im.Constants, Constant{Symbol: symbol, Value: value})
	}

	names := make([]string, 0, len(procedures))
	for name := range procedures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		context := procedures[name]
		im.Procedures = append(im.Procedures, Procedure{
			Name:       name,
			Parameters: context.Parameters.Values(),
			Variables:  context.Variables.Values(),
			Procedures: context.Procedures.Values(),
			Addresses:  context.Addresses,
			Assembly:   context.Assembly,
			Bytecode:   bytecode.WordsToBytes(context.Bytecode),
		})
	}
	return im
}

// Marshal encodes the image to canonical CBOR bytes.
func (im *Image) Marshal() ([]byte, error) {
	return encMode.Marshal(im)
}

// Unmarshal decodes an image from CBOR bytes.
func Unmarshal(data []byte) (*Image, error) {
	var im Image
	if err := cbor.Unmarshal(data, &im); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if im.Version > Version {
		return nil, fmt.Errorf("image: version %d is newer than supported version %d", im.Version, Version)
	}
	return &im, nil
}

// TypeContext reconstructs the type context the image was built from.
func (im *Image) TypeContext() *compiler.TypeContext {
	types := compiler.NewTypeContext()
	for _, literal := range im.Literals {
		types.Literals.Intern(literal)
	}
	for _, constant := range im.Constants {
		types.Constants.Define(constant.Symbol, constant.Value)
	}
	return types
}

// Context reconstructs a procedure context, including its unpacked
// words, for disassembly or execution.
func (p *Procedure) Context() (*compiler.ProcedureContext, error) {
	context := compiler.NewProcedureContext(p.Parameters...)
	for _, variable := range p.Variables {
		context.Variables.Intern(variable)
	}
	for _, procedure := range p.Procedures {
		context.Procedures.Intern(procedure)
	}
	for label, address := range p.Addresses {
		context.Addresses[label] = address
	}
	context.Assembly = p.Assembly

	words, err := bytecode.WordsFromBytes(p.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("image: procedure %q: %w", p.Name, err)
	}
	context.Bytecode = words
	return context, nil
}
