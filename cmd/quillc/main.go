// quillc - assembles canonical procedure assembly into executable images
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/pkg/image"
)

var log = commonlog.GetLogger("quillc")

func main() {
	verbose := flag.Int("v", 0, "Logging verbosity (0-2)")
	disassemble := flag.String("d", "", "Disassemble the given image file and exit")
	output := flag.String("o", "", "Image output path (overrides the manifest)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quillc [options] [dir]\n\n")
		fmt.Fprintf(os.Stderr, "Assembles the .qasm sources configured by dir/quill.toml into an image.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quillc .                  # Build the image for the current project\n")
		fmt.Fprintf(os.Stderr, "  quillc -o out.image ./lib # Build to an explicit path\n")
		fmt.Fprintf(os.Stderr, "  quillc -d out.image       # Print an image's assembly listings\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	if *disassemble != "" {
		if err := disassembleImage(*disassemble); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	dir := "."
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}
	if err := build(dir, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// build assembles every source the manifest names and writes the image.
func build(dir, output string) error {
	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}

	types := compiler.NewTypeContext()
	for _, symbol := range m.ConstantOrder {
		value, _ := m.ConstantValue(symbol)
		types.Constants.Define(symbol, value)
	}

	files, err := m.SourceFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .qasm sources under %s", dir)
	}

	procedures := make(map[string]*compiler.ProcedureContext, len(files))
	for _, file := range files {
		document, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		context := compiler.NewProcedureContext()
		if err := compiler.Assemble(types, context, string(document)); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		name := strings.TrimSuffix(filepath.Base(file), ".qasm")
		procedures[name] = context
		log.Infof("assembled %s: %d words", name, len(context.Bytecode))
	}

	im := image.Build(types, procedures)
	if !m.Image.IncludeAssembly {
		for i := range im.Procedures {
			im.Procedures[i].Assembly = ""
		}
	}
	data, err := im.Marshal()
	if err != nil {
		return err
	}

	path := output
	if path == "" {
		path = filepath.Join(m.Dir, m.Image.Output)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Infof("wrote %s: %d procedures, %d literals", path, len(im.Procedures), len(im.Literals))
	fmt.Printf("%s (%d procedures)\n", path, len(im.Procedures))
	return nil
}

// disassembleImage prints each procedure's assembly listing, rebuilt
// from the packed words.
func disassembleImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	im, err := image.Unmarshal(data)
	if err != nil {
		return err
	}
	types := im.TypeContext()
	for _, procedure := range im.Procedures {
		context, err := procedure.Context()
		if err != nil {
			return err
		}
		instructions, err := compiler.Disassemble(types, context)
		if err != nil {
			return fmt.Errorf("%s: %w", procedure.Name, err)
		}
		fmt.Printf("%s:\n", procedure.Name)
		fmt.Println(compiler.Format(instructions, 1))
	}
	return nil
}
