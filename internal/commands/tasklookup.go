package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"voxtodo/internal/exitcode"
	"voxtodo/internal/service"
	"voxtodo/internal/tasks"
)

// errOutOfRange is returned when a position is past the end of the list.
var errOutOfRange = errors.New("task number out of range")

// findTask resolves ref against the current list.
func findTask(ctx context.Context, svc service.Service, ref TaskRef) (service.Task, error) {
	list, err := svc.Tasks(ctx)
	if err != nil {
		return service.Task{}, err
	}

	if ref.ByID {
		for _, t := range list {
			if t.ID == ref.ID {
				return t, nil
			}
		}
		return service.Task{}, fmt.Errorf("%w: @%d", tasks.ErrNotFound, ref.ID)
	}

	if ref.Num < 1 || ref.Num > len(list) {
		return service.Task{}, fmt.Errorf("%w: %d", errOutOfRange, ref.Num)
	}
	return list[ref.Num-1], nil
}

// resolveTaskArgs parses args as a task reference and looks it up.
// On failure it prints the error and returns a non-zero exit code.
func resolveTaskArgs(ctx context.Context, svc service.Service, args []string, errOut io.Writer) (service.Task, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}

	task, err := findTask(ctx, svc, ref)
	if err != nil {
		if errors.Is(err, errOutOfRange) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return service.Task{}, exitcode.UserError
		}
		return service.Task{}, report(errOut, err)
	}
	return task, exitcode.Success
}
