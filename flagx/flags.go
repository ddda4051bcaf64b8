// Package flagx binds cobra flags to tagged option structs.
//
//	type runOptions struct {
//	    Config  string        `flag:"config,c" usage:"settings file" default:"configs/cache.yaml"`
//	    Timeout time.Duration `flag:"timeout" default:"30s"`
//	}
//
// Bind registers the flags; Parse copies the parsed values back.
package flagx

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var durationType = reflect.TypeOf(time.Duration(0))

type field struct {
	value    reflect.Value
	name     string
	short    string
	usage    string
	def      string
	required bool
}

func fields(target interface{}) ([]field, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("target must be a pointer to struct, got %T", target)
	}
	v = v.Elem()
	t := v.Type()

	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("flag")
		if tag == "" || !v.Field(i).CanSet() {
			continue
		}
		name, short, _ := strings.Cut(tag, ",")
		out = append(out, field{
			value:    v.Field(i),
			name:     name,
			short:    short,
			usage:    sf.Tag.Get("usage"),
			def:      sf.Tag.Get("default"),
			required: sf.Tag.Get("required") == "true",
		})
	}
	return out, nil
}

// Bind registers one flag per tagged field on cmd.
func Bind(cmd *cobra.Command, target interface{}) error {
	return bind(cmd, target, false)
}

// BindPersistent registers the flags on cmd and all its subcommands.
func BindPersistent(cmd *cobra.Command, target interface{}) error {
	return bind(cmd, target, true)
}

func bind(cmd *cobra.Command, target interface{}, persistent bool) error {
	fs, err := fields(target)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for _, f := range fs {
		switch {
		case f.value.Type() == durationType:
			def, err := parseDefault(f, time.ParseDuration)
			if err != nil {
				return err
			}
			flags.DurationP(f.name, f.short, def, f.usage)
		case f.value.Kind() == reflect.String:
			flags.StringP(f.name, f.short, f.def, f.usage)
		case f.value.Kind() == reflect.Int:
			def, err := parseDefault(f, strconv.Atoi)
			if err != nil {
				return err
			}
			flags.IntP(f.name, f.short, def, f.usage)
		case f.value.Kind() == reflect.Bool:
			def, err := parseDefault(f, strconv.ParseBool)
			if err != nil {
				return err
			}
			flags.BoolP(f.name, f.short, def, f.usage)
		case f.value.Kind() == reflect.Slice && f.value.Type().Elem().Kind() == reflect.String:
			var def []string
			if f.def != "" {
				def = strings.Split(f.def, ",")
			}
			flags.StringSliceP(f.name, f.short, def, f.usage)
		default:
			return fmt.Errorf("flag %s: unsupported field type %s", f.name, f.value.Type())
		}
		if !f.required {
			continue
		}
		mark := cmd.MarkFlagRequired
		if persistent {
			mark = cmd.MarkPersistentFlagRequired
		}
		if err := mark(f.name); err != nil {
			return err
		}
	}
	return nil
}

func parseDefault[T any](f field, parse func(string) (T, error)) (T, error) {
	var zero T
	if f.def == "" {
		return zero, nil
	}
	v, err := parse(f.def)
	if err != nil {
		return zero, fmt.Errorf("flag %s: bad default %q: %w", f.name, f.def, err)
	}
	return v, nil
}

// Parse copies the values of cmd's flags into the tagged fields of target.
// Inherited persistent flags are visible once cobra has parsed the command line.
func Parse(cmd *cobra.Command, target interface{}) error {
	fs, err := fields(target)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	for _, f := range fs {
		switch {
		case f.value.Type() == durationType:
			d, err := flags.GetDuration(f.name)
			if err != nil {
				return err
			}
			f.value.SetInt(int64(d))
		case f.value.Kind() == reflect.String:
			s, err := flags.GetString(f.name)
			if err != nil {
				return err
			}
			f.value.SetString(s)
		case f.value.Kind() == reflect.Int:
			n, err := flags.GetInt(f.name)
			if err != nil {
				return err
			}
			f.value.SetInt(int64(n))
		case f.value.Kind() == reflect.Bool:
			b, err := flags.GetBool(f.name)
			if err != nil {
				return err
			}
			f.value.SetBool(b)
		case f.value.Kind() == reflect.Slice && f.value.Type().Elem().Kind() == reflect.String:
			ss, err := flags.GetStringSlice(f.name)
			if err != nil {
				return err
			}
			f.value.Set(reflect.ValueOf(ss))
		default:
			return fmt.Errorf("flag %s: unsupported field type %s", f.name, f.value.Type())
		}
	}
	return nil
}
