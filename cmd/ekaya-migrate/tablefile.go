package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// readTableFile loads a table definition from YAML. "-" reads stdin.
//
//	name: orders
//	columns:
//	  - name: id
//	    type: int64
//	    primary_key: true
//	  - name: note
//	    type: string
//	    length: 200
//	    nullable: true
func readTableFile(path string, stdin io.Reader) (models.TableDefinition, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return models.TableDefinition{}, fmt.Errorf("failed to read table file: %w", err)
	}
	return parseTableDefinition(raw)
}

func parseTableDefinition(raw []byte) (models.TableDefinition, error) {
	var def models.TableDefinition
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return models.TableDefinition{}, fmt.Errorf("failed to parse table file: %w", err)
	}
	if err := def.Validate(); err != nil {
		return models.TableDefinition{}, err
	}
	return def, nil
}
