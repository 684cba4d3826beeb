package serviceinfo

import (
	"strings"

	"github.com/pkg/errors"
)

// Process priority classes accepted by -winflag. Only one applies.
var priorityClasses = map[string]uint32{
	"ABOVE_NORMAL_PRIORITY_CLASS": 0x00008000,
	"BELOW_NORMAL_PRIORITY_CLASS": 0x00004000,
	"HIGH_PRIORITY_CLASS":         0x00000080,
	"IDLE_PRIORITY_CLASS":         0x00000040,
	"NORMAL_PRIORITY_CLASS":       0x00000020,
	"REALTIME_PRIORITY_CLASS":     0x00000100,
}

// Process creation flags accepted by -winflag. They accumulate.
var createFlags = map[string]uint32{
	"CREATE_DEFAULT_ERROR_MODE":        0x04000000,
	"CREATE_NEW_CONSOLE":               0x00000010,
	"CREATE_NEW_PROCESS_GROUP":         0x00000200,
	"CREATE_NO_WINDOW":                 0x08000000,
	"CREATE_PROTECTED_PROCESS":         0x00040000,
	"CREATE_PRESERVE_CODE_AUTHZ_LEVEL": 0x02000000,
	"CREATE_SEPARATE_WOW_VDM":          0x00000800,
	"CREATE_SHARED_WOW_VDM":            0x00001000,
	"DEBUG_ONLY_THIS_PROCESS":          0x00000002,
	"DEBUG_PROCESS":                    0x00000001,
	"DETACHED_PROCESS":                 0x00000008,
	"INHERIT_PARENT_AFFINITY":          0x00010000,
}

// ParseWinFlags folds symbolic -winflag names into a priority class and a
// set of creation flags. Names are case-insensitive. The last priority class
// given wins.
func ParseWinFlags(names []string) (priority, create uint32, err error) {
	for _, name := range names {
		upper := strings.ToUpper(strings.TrimSpace(name))

		if v, ok := priorityClasses[upper]; ok {
			priority = v
			continue
		}
		if v, ok := createFlags[upper]; ok {
			create |= v
			continue
		}

		return 0, 0, errors.Errorf("unknown windows flag %q", name)
	}

	return priority, create, nil
}
