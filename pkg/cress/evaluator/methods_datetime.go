// methods_datetime.go - timestamp methods via the declarative registry.

package evaluator

import (
	"fmt"
	"time"
)

// DatetimeMethodRegistry defines all methods available on timestamps.
var DatetimeMethodRegistry MethodRegistry

func init() {
	DatetimeMethodRegistry = MethodRegistry{
		"date": {
			Fn:          datetimeDate,
			Arity:       "0",
			Description: "Truncate to the start of the day",
		},
		"format": {
			Fn:          datetimeFormat,
			Arity:       "1",
			Description: "Format with YYYY/MM/DD/HH/mm/ss/SSS tokens",
		},
		"time": {
			Fn:          datetimeTime,
			Arity:       "0",
			Description: "Time of day as HH:mm",
		},
		"relative": {
			Fn:          datetimeRelative,
			Arity:       "0",
			Description: "Human phrase relative to now",
		},
	}
}

func receiverTime(receiver Object) time.Time {
	return receiver.(*Datetime).Time
}

func datetimeDate(receiver Object, args []Object, env *Environment) Object {
	t := receiverTime(receiver)
	return &Datetime{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())}
}

func datetimeFormat(receiver Object, args []Object, env *Environment) Object {
	pattern := displayString(args[0])
	return &String{Value: formatDatetime(receiverTime(receiver), pattern)}
}

func datetimeTime(receiver Object, args []Object, env *Environment) Object {
	t := receiverTime(receiver)
	return &String{Value: fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())}
}

func datetimeRelative(receiver Object, args []Object, env *Environment) Object {
	return &String{Value: relativeTime(receiverTime(receiver), env.Now())}
}
