package tracker

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidInstanceName indicates an instance or stream manager identifier
// that does not follow the naming scheme used by the physical plan.
var ErrInvalidInstanceName = errors.New("tracker: invalid instance name")

// InstanceInfo holds the placement information encoded into a physical plan
// instance name.
type InstanceInfo struct {
	Container int
	Component string
	TaskID    int
}

// ParseInstanceName decodes an instance name of the form
// container_<container>_<component>_<taskid>.
func ParseInstanceName(instanceName string) (InstanceInfo, error) {
	parts := strings.Split(instanceName, "_")
	if len(parts) != 4 {
		return InstanceInfo{}, errors.Wrapf(ErrInvalidInstanceName,
			"expected 4 segments in %q", instanceName)
	}

	container, err := strconv.Atoi(parts[1])
	if err != nil {
		return InstanceInfo{}, errors.Wrapf(ErrInvalidInstanceName,
			"non-numeric container index in %q", instanceName)
	}

	taskID, err := strconv.Atoi(parts[3])
	if err != nil {
		return InstanceInfo{}, errors.Wrapf(ErrInvalidInstanceName,
			"non-numeric task id in %q", instanceName)
	}

	return InstanceInfo{
		Container: container,
		Component: parts[2],
		TaskID:    taskID,
	}, nil
}

// ParseStmgrID decodes the container index from a stream manager identifier
// such as "stmgr-3".  The index is the numeric suffix after the first dash.
func ParseStmgrID(stmgrID string) (int, error) {
	parts := strings.SplitN(stmgrID, "-", 2)
	if len(parts) != 2 {
		return 0, errors.Wrapf(ErrInvalidInstanceName,
			"no container suffix in %q", stmgrID)
	}

	container, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInstanceName,
			"non-numeric container suffix in %q", stmgrID)
	}

	return container, nil
}
