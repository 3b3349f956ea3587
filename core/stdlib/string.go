package stdlib

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/artpar/pipekit/core/convention"
	"github.com/artpar/pipekit/core/failure"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/pipeline"
	"github.com/artpar/pipekit/core/value"
)

func loadStringItems(std *namespace.Namespace) {
	std.DefinePipelineFunc("regexReplace", func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		input, err := pipeline.Subject(ctx, "regexReplace", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		format, err := pipeline.Resolve(ctx, args, "regexReplace", "format", value.Value.AsRegexp)
		if err != nil {
			return value.Null(), err
		}
		substitute, err := pipeline.Resolve(ctx, args, "regexReplace", "substitute", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		return value.String(replaceFirst(format, input, substitute)), nil
	})

	stringMap(std, "toWordCase", convention.WordCase)
	stringMap(std, "toLowerCase", strings.ToLower)
	stringMap(std, "toUpperCase", strings.ToUpper)
	stringMap(std, "toTitleCase", convention.TitleCase)
	stringMap(std, "toSentenceCase", convention.SentenceCase)
	stringMap(std, "toSnakeCase", convention.SnakeCase)
	stringMap(std, "trim", strings.TrimSpace)
	stringMap(std, "pluralize", convention.Pluralize)
	stringMap(std, "singularize", convention.Singularize)

	std.DefinePipelineFunc("split", func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		input, err := pipeline.Subject(ctx, "split", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		separator, err := pipeline.Resolve(ctx, args, "split", "separator", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		return value.Strings(strings.Split(input, separator)), nil
	})

	std.DefinePipelineFunc("ellipsis", func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		input, err := pipeline.Subject(ctx, "ellipsis", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		ellipsis, err := pipeline.ResolveOptional(ctx, args, "ellipsis", "ellipsis", "...", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		width, err := pipeline.Resolve(ctx, args, "ellipsis", "width", value.Value.AsUint)
		if err != nil {
			return value.Null(), err
		}
		runes := []rune(input)
		if len(runes) <= width {
			return ctx.Value(), nil
		}
		return value.String(string(runes[:width]) + ellipsis), nil
	})

	std.DefinePipelineFunc("padStart", padItem("padStart", true))
	std.DefinePipelineFunc("padEnd", padItem("padEnd", false))
}

// stringMap defines an item that applies fn to a string subject.
func stringMap(std *namespace.Namespace, name string, fn func(string) string) {
	std.DefinePipelineFunc(name, func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		input, err := pipeline.Subject(ctx, name, value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		return value.String(fn(input)), nil
	})
}

// padItem pads the subject to width runes with a single-character fill.
func padItem(name string, start bool) pipeline.CallFunc {
	return func(args pipeline.Arguments, ctx pipeline.Ctx) (value.Value, error) {
		input, err := pipeline.Subject(ctx, name, value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		fill, err := pipeline.ResolveOptional(ctx, args, name, "char", " ", value.Value.AsString)
		if err != nil {
			return value.Null(), err
		}
		if utf8.RuneCountInString(fill) != 1 {
			return value.Null(), failure.Argument(pipeline.ArgPrefix(name, "char"), "char must be a single character")
		}
		width, err := pipeline.Resolve(ctx, args, name, "width", value.Value.AsUint)
		if err != nil {
			return value.Null(), err
		}
		missing := width - utf8.RuneCountInString(input)
		if missing <= 0 {
			return ctx.Value(), nil
		}
		padding := strings.Repeat(fill, missing)
		if start {
			return value.String(padding + input), nil
		}
		return value.String(input + padding), nil
	}
}

// replaceFirst replaces the leftmost match of re, expanding $n references
// in substitute.
func replaceFirst(re *regexp.Regexp, input, substitute string) string {
	loc := re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input
	}
	expanded := re.ExpandString(nil, substitute, input, loc)
	return input[:loc[0]] + string(expanded) + input[loc[1]:]
}
