package docstore

import (
	"github.com/nasdf/meeple/record"
)

// Sentinel names recognised by the document dialect.
const (
	ServerTimestampName = "serverTimestamp"
	DeleteFieldName     = "deleteField"
	ArrayUnionName      = "arrayUnion"
	ArrayRemoveName     = "arrayRemove"
	IncrementName       = "increment"
)

var (
	// ServerTimestamp marks a field to be set to the commit time.
	ServerTimestamp = record.NewSentinel(ServerTimestampName)
	// DeleteField marks a field to be removed by an update.
	DeleteField = record.NewSentinel(DeleteFieldName)
)

// ArrayUnion returns a sentinel that appends the given values to an array field.
func ArrayUnion(values ...any) *record.Sentinel {
	return record.NewSentinel(ArrayUnionName, sentinelArgs(values)...)
}

// ArrayRemove returns a sentinel that removes the given values from an array field.
func ArrayRemove(values ...any) *record.Sentinel {
	return record.NewSentinel(ArrayRemoveName, sentinelArgs(values)...)
}

// Increment returns a sentinel that adds n to a numeric field.
func Increment(n any) *record.Sentinel {
	return record.NewSentinel(IncrementName, sentinelArgs([]any{n})...)
}

// sentinelArgs converts the arguments of a sentinel, storing null for unsupported values.
func sentinelArgs(values []any) []record.Value {
	args := make([]record.Value, len(values))
	for i, v := range values {
		val, err := record.ValueOf(v)
		if err != nil {
			val = record.Null()
		}
		args[i] = val
	}
	return args
}
