package cliconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
)

// ErrRequired is wrapped by the ParamError of a required field which was not
// given by any source.
var ErrRequired = errors.New("required")

type ParamError struct {
	Flag      string
	Env       string
	ArgN      *int
	FieldName string
	Err       error
}

func (pe ParamError) Error() string {
	return fmt.Sprintf("Error parsing %s: %s", pe.FieldName, pe.Err)
}

func (pe ParamError) Unwrap() error {
	return pe.Err
}

type ParamErrors []ParamError

func (pe ParamErrors) Error() string {
	var out string
	out += fmt.Sprintf("%d CLI errors:\n", len(pe))
	for _, err := range pe {
		out += fmt.Sprintf("Error parsing %s: %s\n", err.FieldName, err.Err)
	}
	return out
}

func (pe ParamErrors) Unwrap() []error {
	errs := make([]error, len(pe))
	for idx, err := range pe {
		errs[idx] = err
	}
	return errs
}

// ParseCombined fills the struct rvRaw points to from args and the
// environment. Flags win over env vars, env vars win over defaults.
func ParseCombined(rvRaw reflect.Value, args []string) error {
	rv, err := toStructVal(rvRaw)
	if err != nil {
		return err
	}

	booleans := findBooleanFlags(rv.Type())
	flagMap, positional, err := parseFlags(args, booleans)
	if err != nil {
		return err
	}

	dd := &cmdData{
		flagMap:    flagMap,
		positional: positional,
		usedArgs:   make([]bool, len(positional)),
	}
	paramErrs := dd.runStruct(rv)

	unknown := make([]string, 0, len(dd.flagMap))
	for k := range dd.flagMap {
		unknown = append(unknown, k)
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		paramErrs = append(paramErrs, ParamError{
			Err:  errors.New("unknown flag"),
			Flag: k,
		})
	}

	leftover := make([]string, 0)
	for idx, used := range dd.usedArgs {
		if !used {
			leftover = append(leftover, dd.positional[idx])
		}
	}
	if dd.remainingField.IsValid() {
		dd.remainingField.Set(reflect.ValueOf(leftover))
	} else {
		for _, arg := range leftover {
			paramErrs = append(paramErrs, ParamError{
				FieldName: arg,
				Err:       errors.New("unexpected argument"),
			})
		}
	}

	if len(paramErrs) > 0 {
		return paramErrs
	}
	return nil
}

type cmdData struct {
	flagMap        map[string]string
	positional     []string
	usedArgs       []bool
	remainingField reflect.Value
}

func (cd *cmdData) popValue(tag parsedTag) (*string, error) {
	if tag.argN != nil {
		if n := *tag.argN; n < len(cd.positional) {
			cd.usedArgs[n] = true
			return &cd.positional[n], nil
		}
	}

	if tag.flagName != "" {
		val, ok := cd.flagMap[tag.flagName]
		if ok {
			delete(cd.flagMap, tag.flagName)
			return &val, nil
		}
	}

	if tag.envName != "" {
		val := os.Getenv(tag.envName)
		if val != "" {
			return &val, nil
		}
	}

	if tag.isBool {
		// leave it false
		return nil, nil
	}

	if tag.defaultVal != nil {
		// an empty default still counts, e.g. empty string
		return tag.defaultVal, nil
	}

	if tag.optional {
		return nil, nil
	}

	return nil, ErrRequired
}

func (cd *cmdData) runField(tag parsedTag, fieldVal reflect.Value) error {
	if tag.remaining {
		if cd.remainingField.IsValid() {
			return fmt.Errorf("only one field can be tagged with ,remaining")
		}
		if fieldVal.Kind() != reflect.Slice || fieldVal.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("remaining args must be a slice of strings")
		}
		cd.remainingField = fieldVal
		return nil
	}

	stringPtr, err := cd.popValue(tag)
	if err != nil {
		return err
	}
	if stringPtr == nil {
		// if required, popValue will already throw
		return nil
	}
	stringValue := *stringPtr

	if fieldVal.Kind() == reflect.Pointer {
		newVal := reflect.New(fieldVal.Type().Elem())
		fieldVal.Set(newVal)
		fieldVal = newVal.Elem()
	}

	fieldInterface := fieldVal.Addr().Interface()

	if fieldVal.Kind() == reflect.Struct {
		if !strings.HasPrefix(stringValue, "{") {
			return fmt.Errorf("struct fields should be set using JSON strings")
		}
		return json.Unmarshal([]byte(stringValue), fieldInterface)
	}

	return SetFromString(fieldInterface, stringValue)
}

func (cd *cmdData) runStruct(rv reflect.Value) ParamErrors {
	errs := make(ParamErrors, 0)
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		fieldType := rt.Field(i)
		parsed, err := parseField(fieldType)
		if err != nil {
			errs = append(errs, ParamError{
				FieldName: fieldType.Name,
				Err:       err,
			})
			continue
		}

		if parsed == nil {
			if fieldType.Type.Kind() != reflect.Struct {
				continue
			}
			subStruct, err := toStructVal(rv.Field(i))
			if err != nil {
				continue
			}
			errs = append(errs, cd.runStruct(subStruct)...)
			continue
		}

		if err := cd.runField(*parsed, rv.Field(i)); err != nil {
			errs = append(errs, ParamError{
				Flag:      parsed.flagName,
				Env:       parsed.envName,
				ArgN:      parsed.argN,
				FieldName: fieldType.Name,
				Err:       err,
			})
		}
	}

	return errs
}

type FlagError string

func (fe FlagError) Error() string {
	return string(fe)
}
