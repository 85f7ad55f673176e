package memory

import "time"

// Turn is one user utterance paired with the model's reply.
type Turn struct {
	ID        string    `json:"id"`
	Human     string    `json:"human"`
	AI        string    `json:"ai"`
	CreatedAt time.Time `json:"created_at"`
}
