package version

import (
	"fmt"

	"go.uber.org/zap"
)

// Result is the outcome of a version negotiation.
type Result struct {
	// Version is nil when the compose should carry no version metadata.
	Version Version
	// Previous is the validated version loaded from the ref, if any.
	Previous Version
	// Skipped is set when a skip-or- request found no previous version.
	Skipped bool
}

// Versioned reports whether a version should be stamped on the compose.
func (r Result) Versioned() bool {
	return r.Version != nil
}

// Negotiator computes the version of the next compose from the version
// recorded on the ref and the requested versioning specifier.
type Negotiator struct {
	Log *zap.Logger
}

// Negotiate is a shorthand for a Negotiator without logging.
func Negotiate(loaded, requested string) (Result, error) {
	return (&Negotiator{}).Negotiate(loaded, requested)
}

// Negotiate returns the version to stamp on the next compose. loaded is the
// version of the ref's current commit ("" if none); requested is the
// versioning specifier ("" if none).
//
// A malformed requested specifier is reported before any policy check.
// A malformed loaded version is ignored with a warning.
func (n *Negotiator) Negotiate(loaded, requested string) (Result, error) {
	log := n.Log
	if log == nil {
		log = zap.NewNop()
	}

	req, err := ParseRequest(requested)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if loaded != "" {
		prev, err := Parse(loaded)
		if err != nil {
			log.Warn("old version is invalid, ignoring it", zap.String("version", loaded), zap.Error(err))
		} else {
			res.Previous = prev
		}
	}

	if req.Absent() {
		if res.Previous != nil {
			return Result{}, &PolicyError{Reason: fmt.Sprintf("no version specified, but have old version %s in tree", res.Previous)}
		}
		return res, nil
	}

	if req.SkipIfUnversioned && res.Previous == nil {
		log.Debug("no previous version, skipping versioning", zap.String("versioning", requested))
		res.Skipped = true
		return res, nil
	}

	next := req.Literal
	if req.Mode != ModeLiteral {
		if res.Previous == nil {
			return Result{}, &PolicyError{Reason: fmt.Sprintf("no previous version to derive a %s version from", req.Mode)}
		}
		if next, err = req.Mode.Apply(res.Previous); err != nil {
			return Result{}, err
		}
	}

	if res.Previous != nil {
		if err := CheckMonotonic(next, res.Previous); err != nil {
			return Result{}, err
		}
	}

	res.Version = next
	log.Info("negotiated version",
		zap.Stringer("version", next),
		zap.Stringer("mode", req.Mode),
		zap.String("previous", loaded),
	)
	return res, nil
}
