// Package flagx binds struct fields to command line flags through tags,
// the way gin binds query strings:
//
//	type Query struct {
//	    Symbol string `flag:"symbol,s" usage:"ticker symbol"`
//	    Force  bool   `flag:"force" usage:"bypass the cache"`
//	}
//
//	flagx.Bind(cmd.Flags(), &Query{})   // while building the command
//	flagx.Parse(cmd.Flags(), &q)        // inside RunE
package flagx

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ErrNotStructPointer target is not a pointer to a struct
var ErrNotStructPointer = errors.New("flagx: target must be a pointer to struct")

var durationType = reflect.TypeOf(time.Duration(0))

type field struct {
	index    int
	name     string
	short    string
	usage    string
	def      string
	required bool
}

func fields(target any) (reflect.Value, []field, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, ErrNotStructPointer
	}
	v = v.Elem()
	t := v.Type()

	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("flag")
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}
		name, short, _ := strings.Cut(tag, ",")
		out = append(out, field{
			index:    i,
			name:     name,
			short:    short,
			usage:    sf.Tag.Get("usage"),
			def:      sf.Tag.Get("default"),
			required: sf.Tag.Get("required") == "true",
		})
	}
	return v, out, nil
}

// Bind registers one flag per tagged field
// Supported: string, bool, int, int64, float64, time.Duration, []string.
func Bind(fs *pflag.FlagSet, target any) error {
	v, fl, err := fields(target)
	if err != nil {
		return err
	}
	for _, f := range fl {
		sf := v.Type().Field(f.index)
		if err := register(fs, sf.Type, f); err != nil {
			return fmt.Errorf("flagx: field %s: %w", sf.Name, err)
		}
	}
	return nil
}

func register(fs *pflag.FlagSet, typ reflect.Type, f field) error {
	if typ == durationType {
		def, err := parseDefault(f.def, time.ParseDuration)
		if err != nil {
			return err
		}
		fs.DurationP(f.name, f.short, def, f.usage)
		return nil
	}
	switch typ.Kind() {
	case reflect.String:
		fs.StringP(f.name, f.short, f.def, f.usage)
	case reflect.Bool:
		def, err := parseDefault(f.def, strconv.ParseBool)
		if err != nil {
			return err
		}
		fs.BoolP(f.name, f.short, def, f.usage)
	case reflect.Int:
		def, err := parseDefault(f.def, strconv.Atoi)
		if err != nil {
			return err
		}
		fs.IntP(f.name, f.short, def, f.usage)
	case reflect.Int64:
		def, err := parseDefault(f.def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err != nil {
			return err
		}
		fs.Int64P(f.name, f.short, def, f.usage)
	case reflect.Float64:
		def, err := parseDefault(f.def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
		if err != nil {
			return err
		}
		fs.Float64P(f.name, f.short, def, f.usage)
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", typ.Elem().Kind())
		}
		var def []string
		if f.def != "" {
			def = strings.Split(f.def, ",")
		}
		fs.StringSliceP(f.name, f.short, def, f.usage)
	default:
		return fmt.Errorf("unsupported type %s", typ)
	}
	return nil
}

func parseDefault[T any](s string, parse func(string) (T, error)) (T, error) {
	var zero T
	if s == "" {
		return zero, nil
	}
	v, err := parse(s)
	if err != nil {
		return zero, fmt.Errorf("bad default %q: %w", s, err)
	}
	return v, nil
}

// Parse copies flag values into the tagged fields of target
// Fields whose flag is not registered are left alone; required flags must be set.
func Parse(fs *pflag.FlagSet, target any) error {
	v, fl, err := fields(target)
	if err != nil {
		return err
	}
	for _, f := range fl {
		pf := fs.Lookup(f.name)
		if pf == nil {
			continue
		}
		if f.required && !pf.Changed {
			return fmt.Errorf("flagx: required flag --%s not set", f.name)
		}
		if err := set(fs, v.Field(f.index), f.name); err != nil {
			return fmt.Errorf("flagx: --%s: %w", f.name, err)
		}
	}
	return nil
}

func set(fs *pflag.FlagSet, fv reflect.Value, name string) error {
	if fv.Type() == durationType {
		d, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}
	switch fv.Kind() {
	case reflect.String:
		s, err := fs.GetString(name)
		if err != nil {
			return err
		}
		fv.SetString(s)
	case reflect.Bool:
		b, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int:
		n, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		fv.SetInt(int64(n))
	case reflect.Int64:
		n, err := fs.GetInt64(name)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float64:
		n, err := fs.GetFloat64(name)
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	case reflect.Slice:
		ss, err := fs.GetStringSlice(name)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(ss))
	default:
		return fmt.Errorf("unsupported type %s", fv.Type())
	}
	return nil
}
