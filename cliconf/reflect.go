package cliconf

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

func toStructVal(rv reflect.Value) (reflect.Value, error) {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("expected struct, got %v", rv.Kind())
	}
	return rv, nil
}

// findBooleanFlags returns the flag names which take no value, i.e. --verbose
// rather than --verbose=true
func findBooleanFlags(rt reflect.Type) map[string]struct{} {
	booleans := make(map[string]struct{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		switch field.Type.Kind() {
		case reflect.Struct:
			for k := range findBooleanFlags(field.Type) {
				booleans[k] = struct{}{}
			}
		case reflect.Bool:
			if flagName := field.Tag.Get("flag"); flagName != "" {
				booleans[flagName] = struct{}{}
			}
		}
	}
	return booleans
}

type parsedTag struct {
	isBool     bool
	envName    string
	flagName   string
	argN       *int
	remaining  bool
	optional   bool
	defaultVal *string
}

// parseField reads the tags of a single field. Positional arguments use
// flag:",arg0", flag:",arg1" etc., and flag:",remaining" collects whatever
// positional arguments are left over.
func parseField(field reflect.StructField) (*parsedTag, error) {
	tag := field.Tag
	envName := tag.Get("env")
	flagName := tag.Get("flag")
	if envName == "" && flagName == "" {
		return nil, nil
	}

	parsed := &parsedTag{
		isBool:  field.Type.Kind() == reflect.Bool,
		envName: envName,
	}

	switch {
	case flagName == ",remaining":
		parsed.remaining = true
		return parsed, nil

	case strings.HasPrefix(flagName, ",arg"):
		n, err := strconv.Atoi(strings.TrimPrefix(flagName, ",arg"))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid positional tag %q on %s", flagName, field.Name)
		}
		parsed.argN = &n

	default:
		parsed.flagName = flagName
	}

	if defaultStr, ok := tag.Lookup("default"); ok {
		parsed.defaultVal = &defaultStr
	}

	if strings.ToLower(tag.Get("required")) == "false" {
		parsed.optional = true
	} else if strings.ToLower(tag.Get("optional")) == "true" {
		parsed.optional = true
	}

	return parsed, nil
}

// SetterFromRunner is used by SetFromString for custom types
type SetterFromRunner interface {
	FromRunnerString(string) error
}

// SetFromString sets the value pointed to by fieldInterface from a string.
// Supports string, bool, int and []string (comma separated), plus any type
// implementing SetterFromRunner.
func SetFromString(fieldInterface interface{}, stringVal string) error {
	if withSetter, ok := fieldInterface.(SetterFromRunner); ok {
		return withSetter.FromRunnerString(stringVal)
	}

	switch field := fieldInterface.(type) {
	case *string:
		*field = stringVal
		return nil

	case *bool:
		val, err := strconv.ParseBool(stringVal)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", stringVal)
		}
		*field = val
		return nil

	case *int:
		val, err := strconv.Atoi(stringVal)
		if err != nil {
			return fmt.Errorf("invalid integer %q", stringVal)
		}
		*field = val
		return nil

	case *[]string:
		vals := strings.Split(stringVal, ",")
		out := make([]string, 0, len(vals))
		for _, val := range vals {
			if stripped := strings.TrimSpace(val); stripped != "" {
				out = append(out, stripped)
			}
		}
		*field = out
		return nil
	}

	return fmt.Errorf("unsupported type %T", fieldInterface)
}

type HelpLine struct {
	FieldName   string
	FlagName    string
	EnvName     string
	ArgN        *int
	Remaining   bool
	Description string
	Default     *string
	Required    bool
}

// GetHelpLines describes every tagged field of rt, positional arguments
// first in position order, then flags and env vars in field order.
func GetHelpLines(rt reflect.Type) []HelpLine {
	var args, named []HelpLine
	collectHelpLines(rt, &args, &named)

	sort.SliceStable(args, func(i, j int) bool {
		return *args[i].ArgN < *args[j].ArgN
	})

	return append(args, named...)
}

func collectHelpLines(rt reflect.Type, args, named *[]HelpLine) {
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag, err := parseField(field)
		if err != nil {
			continue
		}
		if tag == nil {
			if field.Type.Kind() == reflect.Struct {
				collectHelpLines(field.Type, args, named)
			}
			continue
		}

		line := HelpLine{
			FieldName:   field.Name,
			FlagName:    tag.flagName,
			EnvName:     tag.envName,
			ArgN:        tag.argN,
			Remaining:   tag.remaining,
			Description: field.Tag.Get("description"),
			Default:     tag.defaultVal,
			Required:    !tag.optional && !tag.isBool && tag.defaultVal == nil,
		}
		if tag.argN != nil {
			*args = append(*args, line)
		} else {
			*named = append(*named, line)
		}
	}
}
