// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"feed-ranking-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	addPath := addCmd.String("path", defaultRegistryPath, "Path to registry file")
	idAdd := addCmd.String("id", "", "Activity ID (e.g., rank-feed)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Rank Feed)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "feed", "Category")
	taskType := addCmd.String("taskType", "", "Zeebe task type (defaults to id)")
	version := addCmd.String("version", "1.0.0", "Version")
	timeout := addCmd.String("timeout", "30s", "Job timeout")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")

	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries, ...)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	now := time.Now()
	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" {
			fmt.Println("Error: id, displayName and description are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		if *taskType == "" {
			*taskType = *idAdd
		}
		reg, err := loadOrCreate(*addPath, now)
		exitOn(err, "loading registry")
		exitOn(reg.Add(registry.Activity{
			ID:                   *idAdd,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *implStatus,
			ErrorCodes:           []string{},
			Timeout:              *timeout,
			Tags:                 []string{},
		}, now), "adding activity")
		exitOn(reg.Save(*addPath), "saving registry")
		fmt.Printf("Added activity: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		reg, err := registry.LoadRegistry(*updatePath)
		exitOn(err, "loading registry")
		exitOn(reg.Update(*idUpdate, *field, *value, now), "updating activity")
		exitOn(reg.Save(*updatePath), "saving registry")
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		exitOn(err, "loading registry")
		exitOn(reg.Validate(), "registry validation")
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "codes":
		for _, code := range registry.ErrorCodes() {
			fmt.Println(code)
		}

	case "help":
		help()
	default:
		help()
		os.Exit(1)
	}
}

func loadOrCreate(path string, now time.Time) (*registry.ActivityRegistry, error) {
	reg, err := registry.LoadRegistry(path)
	if os.IsNotExist(err) {
		return registry.New(now), nil
	}
	return reg, err
}

func exitOn(err error, what string) {
	if err != nil {
		fmt.Printf("Error %s: %v\n", what, err)
		os.Exit(1)
	}
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry against the worker input schemas
  codes    List the BPMN error codes workers can throw
  help     Show this help message

Examples:
  registry-updater add -id rank-feed -displayName "Rank Feed" -description "Ranks a user's feed"
  registry-updater update -id rank-feed -field status -value verified
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.

`)
}
