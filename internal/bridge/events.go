package bridge

import "github.com/book-expert/events"

// ProductionRequestedEvent asks the bridge to run one production job
// against the HTTP service.
type ProductionRequestedEvent struct {
	Header        events.EventHeader `json:"header"`
	Content       string             `json:"content"`
	Format        string             `json:"format"`
	VoiceName     string             `json:"voice_name,omitempty"`
	ModelVersion  string             `json:"model_version"`
	Language      string             `json:"language"`
	Instruct      string             `json:"instruct,omitempty"`
	Speaker       string             `json:"speaker,omitempty"`
	SpeakerVoices map[string]string  `json:"speaker_voices,omitempty"`
}

// ProductionProgressEvent mirrors one job snapshot onto the progress subject.
type ProductionProgressEvent struct {
	Header   events.EventHeader `json:"header"`
	JobID    string             `json:"job_id"`
	Status   string             `json:"status"`
	Progress float64            `json:"progress"`
	Message  string             `json:"message"`
}

// ProductionCompletedEvent is the reply for a job that finished with an
// artifact. AudioKey names the artifact in the object store.
type ProductionCompletedEvent struct {
	Header   events.EventHeader `json:"header"`
	JobID    string             `json:"job_id"`
	AudioKey string             `json:"audio_key"`
}

// ProductionFailedEvent is the reply for a job that ended in failure.
type ProductionFailedEvent struct {
	Header events.EventHeader `json:"header"`
	JobID  string             `json:"job_id"`
	Error  string             `json:"error"`
}
