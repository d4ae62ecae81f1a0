package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/hcpdash/internal/ingest"
	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
	"github.com/KaramelBytes/hcpdash/internal/utils"
)

// pipelineFlags are shared by the commands that run the pipeline over local files.
type pipelineFlags struct {
	schema      string
	mappings    []string
	mappingFile string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.schema, "schema", "", "canonical schema: normalized | provider (default from config)")
	cmd.Flags().StringArrayVar(&f.mappings, "map", nil, "manual mapping key=column, key=None or key=Auto (repeatable)")
	cmd.Flags().StringVar(&f.mappingFile, "mapping-file", "", "YAML file of key: column pairs")
}

func (f *pipelineFlags) resolveSchema() (*schema.Schema, error) {
	name := f.schema
	if name == "" {
		if c, err := currentConfig(); err == nil {
			name = c.Schema
		}
	}
	return schema.Lookup(name)
}

// mapping merges the mapping file with --map flags; flags win.
func (f *pipelineFlags) mapping(s *schema.Schema) (schema.Mapping, error) {
	raw := map[string]string{}
	if f.mappingFile != "" {
		b, err := os.ReadFile(f.mappingFile)
		if err != nil {
			return nil, fmt.Errorf("read mapping file: %w", err)
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("parse mapping file: %w", err)
		}
	}
	for _, kv := range f.mappings {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --map %q (want key=column)", kv)
		}
		raw[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return schema.ParseMapping(s, raw)
}

// readInputs expands args and parses every file. Unreadable files are reported on
// errOut and skipped, like the upload path does.
func readInputs(args []string, errOut io.Writer) ([]table.Raw, error) {
	files, err := utils.ExpandInputs(args)
	if err != nil {
		return nil, err
	}
	raws, errs := ingest.ReadPaths(files)
	for _, e := range errs {
		fmt.Fprintf(errOut, "⚠ %v\n", e)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("none of the %d input file(s) could be read", len(files))
	}
	return raws, nil
}

// writeOutput writes data to path atomically, or to out when path is empty.
func writeOutput(path string, data []byte, out io.Writer) error {
	if path == "" {
		_, err := out.Write(data)
		return err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
