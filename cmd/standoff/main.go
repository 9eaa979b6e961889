// Command standoff converts XML documents to standoff annotation bundles
// and back, adds annotations to existing bundles, and manages a document
// database.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/standoff/core/bundle"
	"github.com/FocuswithJustin/standoff/core/sqlite"
	"github.com/FocuswithJustin/standoff/core/standoff"
	"github.com/FocuswithJustin/standoff/core/store"
	markup "github.com/FocuswithJustin/standoff/core/xml"
	"github.com/FocuswithJustin/standoff/internal/validation"
)

const version = "0.1.0"

// CLI defines the command-line interface for standoff.
var CLI struct {
	Decompose   DecomposeCmd   `cmd:"" help:"Convert an XML document to a standoff bundle"`
	Reconstruct ReconstructCmd `cmd:"" help:"Convert a standoff bundle back to XML"`
	Annotate    AnnotateCmd    `cmd:"" help:"Add an annotation to a bundle"`
	Inspect     InspectCmd     `cmd:"" help:"Show the text and annotations of a bundle"`
	Query       QueryCmd       `cmd:"" help:"Run an XPath query against an XML document"`
	DB          DBGroup        `cmd:"" name:"db" help:"Document database operations"`
	Version     VersionCmd     `cmd:"" help:"Print version information"`
}

// DecomposeCmd converts an XML file into a standoff bundle.
type DecomposeCmd struct {
	Path string `arg:"" help:"Path to XML file" type:"existingfile"`
	Name string `help:"Document name stored in the bundle (defaults to the file name)"`
	Out  string `short:"o" help:"Output bundle path (.json or .json.xz); stdout if omitted"`
}

func (c *DecomposeCmd) Run() error {
	data, err := readInput(c.Path)
	if err != nil {
		return err
	}

	doc, err := standoff.FromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to decompose %s: %w", c.Path, err)
	}

	name := c.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
	}

	env := bundle.New(doc, name)
	if c.Out == "" {
		return printJSON(env)
	}
	return bundle.Write(env, c.Out)
}

// ReconstructCmd rebuilds XML from a standoff bundle.
type ReconstructCmd struct {
	Path   string `arg:"" help:"Path to bundle file" type:"existingfile"`
	Pretty bool   `help:"Pretty-print the output"`
	Out    string `short:"o" help:"Output XML path; stdout if omitted"`
}

func (c *ReconstructCmd) Run() error {
	doc, _, err := loadBundle(c.Path)
	if err != nil {
		return err
	}

	var out string
	if c.Pretty {
		out, err = doc.ToPrettyXML()
	} else {
		out, err = doc.ToXML()
	}
	if err != nil {
		return fmt.Errorf("failed to reconstruct %s: %w", c.Path, err)
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	if c.Out == "" {
		fmt.Print(out)
		return nil
	}
	return os.WriteFile(c.Out, []byte(out), 0644)
}

// AnnotateCmd adds one annotation to a bundle.
type AnnotateCmd struct {
	Path           string   `arg:"" help:"Path to bundle file" type:"existingfile"`
	Begin          int      `required:"" help:"Span begin offset in the flat text"`
	End            int      `required:"" help:"Span end offset in the flat text"`
	Tag            string   `required:"" help:"Tag name for the annotation"`
	Depth          int      `default:"0" help:"Nesting depth relative to the root"`
	Attr           []string `help:"Attribute as name=value (repeatable)"`
	AllowDuplicate bool     `help:"Store the annotation even if an identical one exists"`
	Out            string   `short:"o" help:"Output bundle path (defaults to rewriting the input)"`
}

func (c *AnnotateCmd) Run() error {
	doc, env, err := loadBundle(c.Path)
	if err != nil {
		return err
	}

	attrs, err := parseAttrs(c.Attr)
	if err != nil {
		return err
	}

	if err := doc.AddAnnotation(c.Begin, c.End, c.Tag, c.Depth, attrs, !c.AllowDuplicate); err != nil {
		return fmt.Errorf("failed to add annotation: %w", err)
	}

	out := c.Out
	if out == "" {
		out = c.Path
	}
	updated := bundle.New(doc, env.Name)
	return bundle.Write(updated, out)
}

// InspectCmd prints a bundle's contents in readable form.
type InspectCmd struct {
	Path string `arg:"" help:"Path to bundle file" type:"existingfile"`
}

func (c *InspectCmd) Run() error {
	doc, env, err := loadBundle(c.Path)
	if err != nil {
		return err
	}

	fmt.Printf("Name:        %s\n", env.Name)
	fmt.Printf("ID:          %s\n", env.ID)
	fmt.Printf("Checksum:    %s\n", env.Checksum)
	fmt.Printf("Text length: %d\n", len(doc.Text()))
	fmt.Printf("Text:        %q\n", doc.Text())

	ns := doc.Namespaces()
	if len(ns) > 0 {
		fmt.Println("Namespaces:")
		for _, n := range ns {
			prefix := n.Prefix
			if prefix == "" {
				prefix = "(default)"
			}
			fmt.Printf("  %-12s %s\n", prefix, n.URI)
		}
	}

	anns := doc.Annotations()
	fmt.Printf("Annotations: %d\n", len(anns))
	for i, a := range anns {
		fmt.Printf("  %3d: [%d,%d) <%s> depth=%d", i, a.Begin, a.End, a.Tag, a.Depth)
		for _, at := range a.Attrs {
			fmt.Printf(" %s=%q", at.Name, at.Value)
		}
		fmt.Println()
	}
	return nil
}

// QueryCmd runs an XPath expression against an XML document.
type QueryCmd struct {
	Path string `arg:"" help:"Path to XML file" type:"existingfile"`
	Expr string `arg:"" help:"XPath expression"`
}

func (c *QueryCmd) Run() error {
	data, err := readInput(c.Path)
	if err != nil {
		return err
	}
	doc, err := markup.Parse(data)
	if err != nil {
		return err
	}

	nodes, err := doc.Query(c.Expr)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		fmt.Println(node.OutputXML(true))
	}
	return nil
}

// DBGroup contains document database operations.
type DBGroup struct {
	DB string `help:"Database path" default:"standoff.db"`

	Save   DBSaveCmd   `cmd:"" help:"Store a bundle in the database"`
	Load   DBLoadCmd   `cmd:"" help:"Reconstruct a stored document as XML"`
	List   DBListCmd   `cmd:"" help:"List stored documents"`
	Delete DBDeleteCmd `cmd:"" help:"Delete a stored document"`
}

// DBSaveCmd stores a bundle in the database.
type DBSaveCmd struct {
	Path string `arg:"" help:"Path to bundle file" type:"existingfile"`
}

func (c *DBSaveCmd) Run(g *DBGroup) error {
	doc, env, err := loadBundle(c.Path)
	if err != nil {
		return err
	}

	s, err := store.Open(g.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.Save(doc, env.Name)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

// DBLoadCmd reconstructs a stored document.
type DBLoadCmd struct {
	ID     string `arg:"" help:"Document ID"`
	Pretty bool   `help:"Pretty-print the output"`
}

func (c *DBLoadCmd) Run(g *DBGroup) error {
	s, err := store.OpenReadOnly(g.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.Load(c.ID)
	if err != nil {
		return err
	}

	var out string
	if c.Pretty {
		out, err = doc.ToPrettyXML()
	} else {
		out, err = doc.ToXML()
	}
	if err != nil {
		return err
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	fmt.Print(out)
	return nil
}

// DBListCmd lists stored documents.
type DBListCmd struct{}

func (c *DBListCmd) Run(g *DBGroup) error {
	s, err := store.OpenReadOnly(g.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.List()
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Printf("%s  %-20s  %3d annotations  %s\n",
			r.ID, r.Name, r.Annotations, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// DBDeleteCmd deletes a stored document.
type DBDeleteCmd struct {
	ID string `arg:"" help:"Document ID"`
}

func (c *DBDeleteCmd) Run(g *DBGroup) error {
	s, err := store.Open(g.DB)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Delete(c.ID)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("standoff version %s\n", version)
	info := sqlite.GetInfo()
	fmt.Printf("sqlite driver: %s (%s) from %s\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

// parseAttrs converts repeated name=value flags into an attribute list,
// preserving the order given on the command line.
func parseAttrs(pairs []string) (standoff.Attrs, error) {
	var attrs standoff.Attrs
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid attribute %q: expected name=value", pair)
		}
		attrs.Set(name, value)
	}
	return attrs, nil
}

func readInput(path string) ([]byte, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > validation.MaxFileSize {
		return nil, fmt.Errorf("%s exceeds size limit", path)
	}
	return data, nil
}

func loadBundle(path string) (*standoff.Document, *bundle.Envelope, error) {
	env, err := bundle.Read(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := env.Document()
	if err != nil {
		return nil, nil, err
	}
	return doc, env, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("standoff"),
		kong.Description("Bidirectional XML to standoff annotation converter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
