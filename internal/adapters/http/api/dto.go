package api

import (
	"time"

	"github.com/okian/racetime/internal/domain/model"
	"github.com/okian/racetime/internal/domain/results"
	"github.com/okian/racetime/internal/domain/tag"
)

type readRequest struct {
	Reader string `json:"reader"`
	TagID  string `json:"tag_id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type participantPayload struct {
	TagID     string `json:"tag_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       *int   `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

func (p participantPayload) model() model.Participant {
	age := model.AgeUnknown
	if p.Age != nil {
		age = *p.Age
	}
	return model.Participant{
		TagID:     tag.ID(p.TagID),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Age:       age,
		Gender:    model.ParseGender(p.Gender),
	}
}

func toParticipant(p model.Participant) participantPayload {
	out := participantPayload{
		TagID:     p.TagID.String(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Gender:    string(p.Gender),
	}
	if p.Age >= 0 {
		age := p.Age
		out.Age = &age
	}
	return out
}

type rosterRequest struct {
	Participants []participantPayload `json:"participants"`
}

type rosterResponse struct {
	Imported int `json:"imported"`
}

type resultResponse struct {
	Rank           int      `json:"rank"`
	OverallRank    int      `json:"overall_rank"`
	TagID          string   `json:"tag_id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Start          string   `json:"start"`
	Finish         string   `json:"finish"`
	ElapsedMs      int64    `json:"elapsed_ms"`
	Time           string   `json:"time"`
	TimeDifference string   `json:"time_difference"`
	Flags          []string `json:"flags,omitempty"`
}

func toResults(in []results.Ranked) []resultResponse {
	out := make([]resultResponse, len(in))
	for i, r := range in {
		out[i] = resultResponse{
			Rank:           r.Rank,
			OverallRank:    r.OverallRank,
			TagID:          r.TagID.String(),
			Name:           r.Name,
			Category:       string(r.Category),
			Start:          r.Start.Format(time.DateTime),
			Finish:         r.Finish.Format(time.DateTime),
			ElapsedMs:      r.ElapsedMs,
			Time:           r.FormattedTime,
			TimeDifference: r.TimeDifference,
		}
		for _, f := range r.Flags {
			out[i].Flags = append(out[i].Flags, string(f))
		}
	}
	return out
}

type pendingResponse struct {
	TagID    string `json:"tag_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Start    string `json:"start"`
}

type anomalyResponse struct {
	TagID  string `json:"tag_id"`
	RawTag string `json:"raw_tag"`
	Role   string `json:"role"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type raceResultsResponse struct {
	Race        string               `json:"race"`
	Results     []resultResponse     `json:"results"`
	Pending     []pendingResponse    `json:"pending"`
	DidNotStart []participantPayload `json:"did_not_start"`
	Anomalies   []anomalyResponse    `json:"anomalies"`
}

func toRaceResults(race string, r results.Report) raceResultsResponse {
	out := raceResultsResponse{
		Race:        race,
		Results:     toResults(r.Results),
		Pending:     make([]pendingResponse, len(r.Pending)),
		DidNotStart: make([]participantPayload, len(r.DidNotStart)),
		Anomalies:   make([]anomalyResponse, len(r.Anomalies)),
	}
	for i, p := range r.Pending {
		out.Pending[i] = pendingResponse{
			TagID:    p.TagID.String(),
			Name:     p.Name,
			Category: string(results.Classify(p.Participant)),
			Start:    p.Start.Format(time.DateTime),
		}
	}
	for i, p := range r.DidNotStart {
		out.DidNotStart[i] = toParticipant(p)
	}
	for i, a := range r.Anomalies {
		out.Anomalies[i] = anomalyResponse{
			TagID:  a.TagID.String(),
			RawTag: a.RawTag,
			Role:   string(a.Role),
			Reason: a.Reason,
			Detail: a.Detail,
		}
	}
	return out
}

type categoryResponse struct {
	Category        string           `json:"category"`
	Results         []resultResponse `json:"results"`
	TotalRegistered int              `json:"total_registered"`
	TotalFinished   int              `json:"total_finished"`
	DidNotStart     int              `json:"did_not_start"`
	DidNotFinish    int              `json:"did_not_finish"`
	Disqualified    int              `json:"disqualified"`
}

type categoriesResponse struct {
	Race       string             `json:"race"`
	Categories []categoryResponse `json:"categories"`
}

func toCategories(race string, in []results.CategoryReport) categoriesResponse {
	out := categoriesResponse{Race: race, Categories: make([]categoryResponse, len(in))}
	for i, c := range in {
		out.Categories[i] = categoryResponse{
			Category:        string(c.Category),
			Results:         toResults(c.Results),
			TotalRegistered: c.TotalRegistered,
			TotalFinished:   c.TotalFinished,
			DidNotStart:     c.DidNotStart,
			DidNotFinish:    c.DidNotFinish,
			Disqualified:    c.Disqualified,
		}
	}
	return out
}

type raceResponse struct {
	ID           string `json:"id"`
	Participants int    `json:"participants"`
	StartReads   int    `json:"start_reads"`
	FinishReads  int    `json:"finish_reads"`
}

type correctionResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	TagID     string    `json:"tag_id"`
	Detail    string    `json:"detail"`
	AppliedAt time.Time `json:"applied_at"`
}

type statusResponse struct {
	Status string `json:"status"`
}
