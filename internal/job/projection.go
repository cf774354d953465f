package job

import (
	"math"

	"github.com/book-expert/production-client/internal/core"
)

const percentScale = 100

// View is the render-ready projection of a job snapshot. It carries no
// behavior: every field is a pure derivation of the snapshot.
type View struct {
	JobID        string
	State        core.JobState
	Percentage   int
	Message      string
	ArtifactURL  string
	ErrorText    string
	IsTerminal   bool
	ShowBar      bool
	ErrorVisible bool
}

// Project derives the render fields from a snapshot. It is deterministic
// and idempotent: the same snapshot always yields the same view.
func Project(snapshot Snapshot) View {
	return View{
		JobID:       snapshot.JobID,
		State:       snapshot.State,
		Percentage:  int(math.Round(snapshot.Progress * percentScale)),
		Message:     snapshot.Message,
		ArtifactURL: snapshot.ArtifactURL,
		ErrorText:   snapshot.ErrorDetail,
		IsTerminal:  snapshot.State.IsTerminal(),
		ShowBar: snapshot.State != core.JobStateIdle &&
			snapshot.State != core.JobStateCompleted,
		ErrorVisible: snapshot.State == core.JobStateFailed,
	}
}
