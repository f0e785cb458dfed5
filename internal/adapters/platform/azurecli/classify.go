package azurecli

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/avdops/azmon-reconciler/internal/errors"
)

// The az CLI surfaces management-plane failures as free text on stderr.
// Classification is string matching by necessity; the markers below are
// the stable fragments the CLI has emitted across versions.

var notFoundMarkers = []string{
	"ResourceNotFound",
	"NotFound",
	"was not found",
	"could not be found",
	"does not exist",
	"ResourceGroupNotFound",
}

var authMarkers = []string{
	"az login",
	"AADSTS",
	"AuthorizationFailed",
	"ExpiredAuthenticationToken",
	"InvalidAuthenticationToken",
	"authentication needed",
}

// benignConflictMarkers match apply failures whose end state is already
// satisfied, e.g. a diagnostic setting under another name forwarding to
// the same workspace.
var benignConflictMarkers = []string{
	"already exists",
	"data sink",
	"already been used",
	"Conflict",
}

// ClassifyError maps an az invocation failure to an application error.
// kind/name identify the resource for the message; ctx is checked first
// so cancellation does not get misread as a provider failure.
func ClassifyError(ctx context.Context, err error, kind string, name string) error {
	if err == nil {
		return errors.New(errors.CodeInternal, fmt.Sprintf("unexpected nil error in az error classifier for %s", kind))
	}

	if ctx.Err() != nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeLookupTimeout,
			fmt.Sprintf("az call for %s '%s' cancelled or timed out", kind, name))
	}

	errMsg := err.Error()
	var cmdErr *CommandError
	if stderrs.As(err, &cmdErr) {
		errMsg = cmdErr.Stderr
	}

	if containsAny(errMsg, authMarkers) {
		return errors.Wrap(err, errors.CodePlatformAuthError,
			fmt.Sprintf("Azure authentication error accessing %s '%s'", kind, name))
	}

	if containsAny(errMsg, notFoundMarkers) {
		return errors.Wrap(err, errors.CodeResourceNotFound,
			fmt.Sprintf("%s '%s' not found", kind, name))
	}

	if containsAny(errMsg, benignConflictMarkers) {
		return errors.Wrap(err, errors.CodeBenignConflict,
			fmt.Sprintf("%s '%s' already satisfied by an existing resource", kind, name))
	}

	return errors.Wrap(err, errors.CodePlatformAPIError,
		fmt.Sprintf("az call failed for %s '%s'", kind, name))
}

func IsNotFound(err error) bool {
	return errors.Is(err, errors.CodeResourceNotFound)
}

func IsBenignConflict(err error) bool {
	return errors.Is(err, errors.CodeBenignConflict)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
