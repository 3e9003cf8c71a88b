package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

// emit prints v as JSON when --output json is set and reports whether it did
func emit(v interface{}) bool {
	if output != "json" {
		return false
	}
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return true
}

func success(format string, args ...interface{}) {
	fmt.Println(green("✓ ") + fmt.Sprintf(format, args...))
}

func visibility(visible bool) string {
	if visible {
		return ""
	}
	return dim(" (hidden)")
}
