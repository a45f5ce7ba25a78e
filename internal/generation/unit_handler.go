package generation

import (
	"fmt"

	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
)

// UnitHandler runs queued generation units on a worker.
type UnitHandler struct {
	coord *Coordinator
}

func NewUnitHandler(coord *Coordinator) *UnitHandler {
	return &UnitHandler{coord: coord}
}

func (h *UnitHandler) Type() string { return UnitJobType }

func (h *UnitHandler) Run(jc *runtime.Context) error {
	var u Unit
	if err := jc.Decode(&u); err != nil {
		return err
	}
	if u.TaskID == "" || u.TopicKey == "" {
		return fmt.Errorf("generation unit missing task id or topic")
	}
	jc.Log.Debug("running generation unit", "task_id", u.TaskID, "topic", u.TopicKey)
	return h.coord.RunUnit(jc.Ctx, u)
}
