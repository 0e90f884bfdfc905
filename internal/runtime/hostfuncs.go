package runtime

import (
	"context"

	"github.com/risor-io/risor/object"
	"github.com/sirupsen/logrus"

	"github.com/jward/arbor/internal/resolve"
)

// makeCommonPrefixFn creates the "common_prefix" host function.
//
// common_prefix(a, b) → int
//
// Counts the leading slash-separated path segments a and b share.
func makeCommonPrefixFn() *object.Builtin {
	return object.NewBuiltin("common_prefix", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("common_prefix", 2, len(args))
		}
		a, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("common_prefix: first argument must be a string, got %s", args[0].Type())
		}
		b, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("common_prefix: second argument must be a string, got %s", args[1].Type())
		}
		return object.NewInt(int64(resolve.SharedPrefix(a.Value(), b.Value())))
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	entry *logrus.Entry
}

func (l *logObject) Info(msg string) {
	l.entry.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.entry.Error(msg)
}
