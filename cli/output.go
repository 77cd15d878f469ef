package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
)

func validateOutputFormat(output string) error {
	switch strings.ToLower(output) {
	case "table", "yaml", "json":
		return nil
	default:
		return errors.Errorf(
			"unknown output format %q; supported formats: table, yaml, json",
			output,
		)
	}
}

// printOutput prints obj in the specified format. For the table format,
// addRows populates the table.
func printOutput(
	output string,
	operation string,
	obj interface{},
	addRows func(*uitable.Table),
) error {
	switch strings.ToLower(output) {
	case "table":
		table := uitable.New()
		addRows(table)
		fmt.Println(table)

	case "yaml":
		yamlBytes, err := yaml.Marshal(obj)
		if err != nil {
			return errors.Wrapf(
				err,
				"error formatting output from %s operation",
				operation,
			)
		}
		fmt.Println(string(yamlBytes))

	case "json":
		prettyJSON, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return errors.Wrapf(
				err,
				"error formatting output from %s operation",
				operation,
			)
		}
		fmt.Println(string(prettyJSON))
	}
	return nil
}
