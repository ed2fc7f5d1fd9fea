package config

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

var commandConfigType = reflect.TypeOf(CommandConfig{})

// commandDecodeHook builds a CommandConfig from either a shell-like string
// ("espeak-ng -g 5") or a YAML sequence ([espeak-ng, -g, "5"]).
func commandDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != commandConfigType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		raw := strings.TrimSpace(data.(string))
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, err
		}
		return CommandConfig{Raw: raw, Argv: argv}, nil
	case reflect.Slice, reflect.Array:
		argv, err := argvFromSequence(reflect.ValueOf(data))
		if err != nil {
			return nil, err
		}
		return CommandConfig{Raw: formatArgv(argv), Argv: argv}, nil
	default:
		return data, nil
	}
}

func argvFromSequence(seq reflect.Value) ([]string, error) {
	if seq.Len() == 0 {
		return nil, nil
	}
	argv := make([]string, 0, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		elem := seq.Index(i).Interface()
		if elem == nil {
			return nil, fmt.Errorf("command element %d is empty", i)
		}
		switch elem.(type) {
		case map[string]any, map[any]any, []any:
			return nil, fmt.Errorf("command element %d must be a scalar, got %T", i, elem)
		}
		arg := fmt.Sprint(elem)
		if arg == "" {
			return nil, fmt.Errorf("command element %d is empty", i)
		}
		argv = append(argv, arg)
	}
	return argv, nil
}

// formatArgv renders argv as a string parseArgv reads back unchanged.
func formatArgv(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = quoteArg(arg)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(arg string) string {
	if arg != "" && !strings.ContainsFunc(arg, needsQuote) {
		return arg
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(arg)
	return "'" + escaped + "'"
}

func needsQuote(r rune) bool {
	return unicode.IsSpace(r) || r == '\'' || r == '"' || r == '\\' || r == '#'
}

// parseArgv splits a command line with single/double quotes and backslash escapes.
// A line starting with '#' is treated as unset.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv    []string
		current strings.Builder
		quote   rune
		escape  bool
		started bool
	)

	for _, r := range input {
		switch {
		case escape:
			current.WriteRune(r)
			escape = false
		case r == '\\':
			escape = true
			started = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			started = true
		case unicode.IsSpace(r):
			if started || current.Len() > 0 {
				argv = append(argv, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
		}
	}

	switch {
	case escape:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	if started || current.Len() > 0 {
		argv = append(argv, current.String())
	}
	return argv, nil
}

// mustCommand is for compiled-in defaults, which are known to parse.
func mustCommand(raw string) CommandConfig {
	argv, err := parseArgv(raw)
	if err != nil {
		panic(err)
	}
	return CommandConfig{Raw: raw, Argv: argv}
}
