package memworld

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/world"
)

func (w *World) expiry(params world.ConstraintParams) time.Time {
	if params.TTL() <= 0 {
		return time.Time{}
	}
	return w.clock().Add(params.TTL())
}

func (w *World) AddConstraint(id world.EntityID, params world.ConstraintParams) (world.ConstraintID, error) {
	w.constraintAdds.Add(1)

	w.rejectMx.RLock()
	rejectErr := w.reject[params.Kind()]
	w.rejectMx.RUnlock()
	if rejectErr != nil {
		return "", rejectErr
	}

	cid := world.ConstraintID(uuid.NewString())
	err := w.write(id, func(e *entity) error {
		e.constraints = append(e.constraints, &constraint{id: cid, params: params, expiresAt: w.expiry(params)})
		return nil
	})
	if err != nil {
		return "", err
	}

	w.logger.Debug("constraint added",
		log.String("entity", string(id)),
		log.String("constraint", string(cid)),
		log.String("kind", string(params.Kind())),
		log.String("tag", params.Tag()),
	)
	return cid, nil
}

func (w *World) UpdateConstraint(id world.EntityID, cid world.ConstraintID, params world.ConstraintParams) error {
	w.constraintUpdates.Add(1)
	return w.write(id, func(e *entity) error {
		for _, c := range e.constraints {
			if c.id != cid {
				continue
			}
			if c.params.Kind() != params.Kind() {
				return fmt.Errorf("constraint %s is %s, not %s", cid, c.params.Kind(), params.Kind())
			}
			c.params = params
			c.expiresAt = w.expiry(params)
			return nil
		}
		return fmt.Errorf("constraint %s on %s not found", cid, id)
	})
}

// DeleteConstraint removes cid; deleting an unknown constraint is not an error.
func (w *World) DeleteConstraint(id world.EntityID, cid world.ConstraintID) error {
	w.constraintDeletes.Add(1)
	return w.write(id, func(e *entity) error {
		for i, c := range e.constraints {
			if c.id == cid {
				e.constraints = append(e.constraints[:i], e.constraints[i+1:]...)
				break
			}
		}
		return nil
	})
}

func (w *World) Constraints(id world.EntityID) []world.ConstraintInfo {
	var out []world.ConstraintInfo
	w.read(id, func(e *entity) {
		out = make([]world.ConstraintInfo, 0, len(e.constraints))
		for _, c := range e.constraints {
			out = append(out, world.ConstraintInfo{ID: c.id, Kind: c.params.Kind(), Tag: c.params.Tag()})
		}
	})
	return out
}
