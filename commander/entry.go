package commander

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dasanik2001/manage-env/cliconf"
)

type Command[C any] struct {
	Callback func(context.Context, C) error
	CommandOption
}

type CommandOption struct {
	description     string
	outcomeCallback func(context.Context, error)
}

func WithDescription(description string) func(*CommandOption) {
	return func(co *CommandOption) {
		co.description = description
	}
}

func WithOutcomeCallback(outcomeCallback func(context.Context, error)) func(*CommandOption) {
	return func(co *CommandOption) {
		co.outcomeCallback = outcomeCallback
	}
}

func NewCommand[C any](callback func(context.Context, C) error, options ...func(*CommandOption)) *Command[C] {
	option := CommandOption{}
	for _, opt := range options {
		opt(&option)
	}

	return &Command[C]{
		Callback:      callback,
		CommandOption: option,
	}
}

func (cc *Command[C]) helpTags() []cliconf.HelpLine {
	rt := reflect.TypeOf(new(C)).Elem()
	return cliconf.GetHelpLines(rt)
}

func argName(tag cliconf.HelpLine) string {
	name := strings.ToLower(tag.FieldName)
	if tag.Remaining {
		return "[" + name + "...]"
	}
	if tag.Required {
		return "<" + name + ">"
	}
	return "[" + name + "]"
}

// Usage renders the positional arguments, e.g. "<key> <value> [options]"
func (cc *Command[C]) Usage() string {
	parts := make([]string, 0)
	hasOptions := false
	for _, tag := range cc.helpTags() {
		if tag.ArgN != nil || tag.Remaining {
			parts = append(parts, argName(tag))
		} else {
			hasOptions = true
		}
	}
	if hasOptions {
		parts = append(parts, "[options]")
	}
	return strings.Join(parts, " ")
}

func (cc *Command[C]) helpLines(prefix string) []string {
	tags := cc.helpTags()
	lines := make([][]string, 0, len(tags))
	for _, tag := range tags {
		description := tag.Description

		if tag.Default != nil && *tag.Default != "" {
			description += fmt.Sprintf(" (default: %s)", *tag.Default)
		}

		name := ""
		if tag.FlagName != "" && tag.EnvName != "" {
			name = fmt.Sprintf("--%s / $%s", tag.FlagName, tag.EnvName)
		} else if tag.FlagName != "" {
			name = fmt.Sprintf("--%s", tag.FlagName)
		} else if tag.ArgN != nil || tag.Remaining {
			name = argName(tag)
		} else if tag.EnvName != "" {
			name = fmt.Sprintf("$%s", tag.EnvName)
		} else {
			name = "<unknown>"
		}

		lines = append(lines, []string{name, description})
	}
	return evenJoin(prefix, lines)
}

func (cc *Command[C]) Help() string {
	lines := cc.helpLines("  ")
	return cc.description + "\n" + strings.Join(lines, "\n")
}

type HelpError struct {
	Usage string
	Lines []string
	Err   error
}

func (he HelpError) Error() string {
	return strings.Join(he.Lines, "\n")
}

func (he HelpError) Unwrap() error {
	return he.Err
}

func (cc *Command[C]) Run(ctx context.Context, args []string) error {
	config := new(C)
	configValue := reflect.ValueOf(config).Elem()

	parseError := cliconf.ParseCombined(configValue, args)
	if parseError != nil {
		if paramErrors := new(cliconf.ParamErrors); errors.As(parseError, paramErrors) {
			lines := make([]string, 0, len(*paramErrors))
			for _, err := range *paramErrors {
				var name string
				if err.Flag != "" && err.Env != "" {
					name = fmt.Sprintf("--%s / $%s", err.Flag, err.Env)
				} else if err.Flag != "" {
					name = fmt.Sprintf("--%s", err.Flag)
				} else if err.ArgN != nil {
					name = "<" + strings.ToLower(err.FieldName) + ">"
				} else if err.Env != "" {
					name = fmt.Sprintf("$%s", err.Env)
				} else if err.FieldName != "" {
					name = err.FieldName
				} else {
					name = "<unknown>"
				}
				lines = append(lines, fmt.Sprintf("  %s : %s", name, err.Err))
			}

			lines = append(lines, "Arguments, Flags and Env Vars:")
			lines = append(lines, cc.helpLines("  ")...)

			return HelpError{
				Usage: cc.Usage(),
				Lines: lines,
				Err:   parseError,
			}
		}
		return parseError
	}

	mainErr := cc.Callback(ctx, *config)
	if cc.outcomeCallback != nil {
		cc.outcomeCallback(ctx, mainErr)
	}
	return mainErr
}
