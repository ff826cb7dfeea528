package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/scenario"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.yaml|scenario.json>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &ScenarioValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		for _, w := range validator.warnings {
			fmt.Println(w)
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type ScenarioValidator struct {
	errors   []string
	warnings []string
}

func (v *ScenarioValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	if _, err := scenario.FormatFromPath(baseName); err != nil {
		return err
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ext)
	if !isValidScenarioFilename(nameWithoutExt) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario%s, not my-scenario%s)", baseName, ext, ext)
	}

	s, err := scenario.LoadFile(filename, true)
	if err != nil {
		return fmt.Errorf("file %s failed strict unmarshaling: %w", filename, err)
	}

	v.validateScenario(s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *ScenarioValidator) validateScenario(s *scenario.Scenario) {
	v.validateIDFormat("opening_scene", s.OpeningScene)
	for _, sc := range s.Scenes {
		v.validateIDFormat("scene ID", sc.ID)
	}

	results := scenario.Validate(s)
	sceneIDs := slices.Sorted(maps.Keys(results))
	for _, sceneID := range sceneIDs {
		where := "scene " + sceneID
		if sceneID == "" {
			where = "scenario"
		}
		validation := results[sceneID]
		dialogueIDs := slices.Sorted(maps.Keys(validation))
		for _, dialogueID := range dialogueIDs {
			loc := where
			if dialogueID != "" {
				loc += ", dialogue " + dialogueID
			}
			for _, issue := range validation[dialogueID] {
				msg := fmt.Sprintf("%s: %s", loc, issue.Message)
				if issue.Type == scenario.IssueError {
					v.addError(msg)
				} else {
					v.addWarning(msg)
				}
			}
		}
	}
}

func (v *ScenarioValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addWarning(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *ScenarioValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *ScenarioValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, "  ! "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidScenarioFilename(name string) bool {
	// Allow 'x.' prefix for experimental scenarios
	name = strings.TrimPrefix(name, "x.")
	return isValidID(name)
}
