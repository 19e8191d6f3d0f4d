package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
	"contest_judge/internal/domain/repository"
	"contest_judge/internal/judge"
)

// In-memory collaborators for service tests. Embedded repository interfaces
// are left nil: calling a method a fake does not override panics, which flags
// an unexpected dependency.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

type fakeTransactor struct{ calls int }

func (f *fakeTransactor) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	f.calls++
	return fn(nil)
}

type memSubmissions struct {
	repository.SubmissionRepository
	mu      sync.Mutex
	subs    map[string]*model.Submission
	results map[string][]model.SubmissionTestcase
	points  map[string]int // testcase id -> points, joined on read
	lbCalls int

	lastFilter repository.SubmissionFilter
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{
		subs:    map[string]*model.Submission{},
		results: map[string][]model.SubmissionTestcase{},
		points:  map[string]int{},
	}
}

func (m *memSubmissions) put(s model.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = &s
}

func (m *memSubmissions) CreateSubmission(_ context.Context, _ *sql.Tx, sub *model.Submission) error {
	m.put(*sub)
	return nil
}

func (m *memSubmissions) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubmissions) ListPendingSubmissionIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.subs {
		if s.Status == model.StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memSubmissions) sorted(keep func(*model.Submission) bool) []model.Submission {
	var out []model.Submission
	for _, s := range m.subs {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

func (m *memSubmissions) ListForLeaderboard(_ context.Context, problemID, contestID string) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lbCalls++
	return m.sorted(func(s *model.Submission) bool {
		if contestID != "" {
			return s.ContestID != nil && *s.ContestID == contestID
		}
		return s.ProblemID == problemID
	}), nil
}

func (m *memSubmissions) ListUserContestSubmissions(_ context.Context, _ *sql.Tx, userID, contestID string) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s *model.Submission) bool {
		return s.UserID == userID && s.ContestID != nil && *s.ContestID == contestID
	}), nil
}

func (m *memSubmissions) CreateTestcaseResult(_ context.Context, _ *sql.Tx, res *model.SubmissionTestcase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results[res.SubmissionID] {
		if r.TestcaseID == res.TestcaseID {
			return common.ErrConflict
		}
	}
	m.results[res.SubmissionID] = append(m.results[res.SubmissionID], *res)
	return nil
}

func (m *memSubmissions) UpsertTestcaseResult(_ context.Context, _ *sql.Tx, res *model.SubmissionTestcase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.results[res.SubmissionID]
	for i, r := range rows {
		if r.TestcaseID == res.TestcaseID {
			rows[i] = *res
			return nil
		}
	}
	m.results[res.SubmissionID] = append(rows, *res)
	return nil
}

func (m *memSubmissions) ListTestcaseResults(_ context.Context, _ *sql.Tx, submissionID string) ([]model.SubmissionTestcase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SubmissionTestcase, 0, len(m.results[submissionID]))
	for _, r := range m.results[submissionID] {
		r.TestcasePoints = m.points[r.TestcaseID]
		out = append(out, r)
	}
	return out, nil
}

func (m *memSubmissions) UpdateSubmissionResult(_ context.Context, _ *sql.Tx, sub *model.Submission, requirePending bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subs[sub.ID]
	if !ok {
		return common.ErrNotFound
	}
	if requirePending && cur.Status != model.StatusPending {
		return common.ErrConflict
	}
	cp := *sub
	cp.TestcaseResults = nil
	m.subs[sub.ID] = &cp
	return nil
}

func (m *memSubmissions) MarkSystemError(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok && s.Status == model.StatusPending {
		s.Status = model.StatusSystemError
	}
	return nil
}

func (m *memSubmissions) CountSubmissionsByUser(_ context.Context, _ *sql.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subs {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memSubmissions) CountSolvedProblemsByUser(_ context.Context, _ *sql.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	solved := map[string]bool{}
	for _, s := range m.subs {
		if s.UserID == userID && s.Status == model.StatusAccepted {
			solved[s.ProblemID] = true
		}
	}
	return len(solved), nil
}

type memProblems struct {
	repository.ProblemRepository
	problems  map[string]*model.Problem
	testcases map[string][]model.Testcase
}

func newMemProblems() *memProblems {
	return &memProblems{problems: map[string]*model.Problem{}, testcases: map[string][]model.Testcase{}}
}

func (m *memProblems) add(p model.Problem, tcs ...model.Testcase) {
	m.problems[p.ID] = &p
	for i := range tcs {
		tcs[i].ProblemID = p.ID
	}
	m.testcases[p.ID] = append(m.testcases[p.ID], tcs...)
}

func (m *memProblems) CreateProblem(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	cp := *p
	m.problems[p.ID] = &cp
	return nil
}

func (m *memProblems) AddTestcasesToProblem(_ context.Context, _ *sql.Tx, problemID string, tcs []model.Testcase) error {
	for _, tc := range tcs {
		tc.ProblemID = problemID
		m.testcases[problemID] = append(m.testcases[problemID], tc)
	}
	return nil
}

func (m *memProblems) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	p, ok := m.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProblems) GetTestcasesByProblemID(_ context.Context, problemID string) ([]model.Testcase, error) {
	return append([]model.Testcase(nil), m.testcases[problemID]...), nil
}

func (m *memProblems) CountTestcases(_ context.Context, _ *sql.Tx, problemID string) (int, error) {
	return len(m.testcases[problemID]), nil
}

func (m *memProblems) FindTestcaseByID(_ context.Context, id string) (*model.Testcase, error) {
	for _, tcs := range m.testcases {
		for _, tc := range tcs {
			if tc.ID == id {
				cp := tc
				return &cp, nil
			}
		}
	}
	return nil, common.ErrNotFound
}

type memContests struct {
	repository.ContestRepository
	contests     map[string]*model.Contest
	participants map[string][]string
}

func newMemContests() *memContests {
	return &memContests{contests: map[string]*model.Contest{}, participants: map[string][]string{}}
}

func (m *memContests) FindContestByID(_ context.Context, id string) (*model.Contest, error) {
	c, ok := m.contests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memContests) IsParticipant(_ context.Context, contestID, userID string) (bool, error) {
	for _, u := range m.participants[contestID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memContests) CountParticipants(_ context.Context, _ *sql.Tx, contestID string) (int, error) {
	return len(m.participants[contestID]), nil
}

func (m *memContests) CreateParticipation(_ context.Context, _ *sql.Tx, p *model.ContestParticipation) error {
	for _, u := range m.participants[p.ContestID] {
		if u == p.UserID {
			return common.ErrConflict
		}
	}
	m.participants[p.ContestID] = append(m.participants[p.ContestID], p.UserID)
	return nil
}

func (m *memContests) ListParticipantIDs(_ context.Context, contestID string) ([]string, error) {
	return append([]string(nil), m.participants[contestID]...), nil
}

type memUsers struct {
	repository.UserRepository
	profiles map[string]*model.UserProfile
}

func newMemUsers() *memUsers {
	return &memUsers{profiles: map[string]*model.UserProfile{}}
}

func (m *memUsers) UpdateProfileCounters(_ context.Context, _ *sql.Tx, userID string, total, solved int) error {
	p, ok := m.profiles[userID]
	if !ok {
		p = &model.UserProfile{UserID: userID, Rating: 1500}
		m.profiles[userID] = p
	}
	p.TotalSubmissions = total
	p.TotalSolved = solved
	return nil
}

func (m *memUsers) GetProfile(_ context.Context, _ *sql.Tx, userID string) (*model.UserProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memUsers) ListUserIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memLeaderboard struct {
	repository.LeaderboardRepository
	rows    map[string]model.LeaderboardRow // keyed by user id
	reranks int
	ops     []string
}

func newMemLeaderboard() *memLeaderboard {
	return &memLeaderboard{rows: map[string]model.LeaderboardRow{}}
}

func (m *memLeaderboard) LockContest(_ context.Context, _ *sql.Tx, contestID string) error {
	m.ops = append(m.ops, "lock:"+contestID)
	return nil
}

func (m *memLeaderboard) UpsertRow(_ context.Context, _ *sql.Tx, row *model.LeaderboardRow) error {
	m.ops = append(m.ops, "upsert:"+row.UserID)
	m.rows[row.UserID] = *row
	return nil
}

func (m *memLeaderboard) ListByContest(_ context.Context, contestID string) ([]model.LeaderboardRow, error) {
	var out []model.LeaderboardRow
	for _, r := range m.rows {
		if r.ContestID == contestID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memLeaderboard) RerankContest(_ context.Context, _ *sql.Tx, contestID string) error {
	m.ops = append(m.ops, "rerank:"+contestID)
	m.reranks++
	return nil
}

type memPractice struct {
	repository.PracticeRepository
	problems map[string]*model.PracticeProblem
	subs     *memSubmissions
	tcs      map[string][]model.Testcase
}

func newMemPractice() *memPractice {
	return &memPractice{
		problems: map[string]*model.PracticeProblem{},
		subs:     newMemSubmissions(),
		tcs:      map[string][]model.Testcase{},
	}
}

func (m *memPractice) FindProblemByID(_ context.Context, id string) (*model.PracticeProblem, error) {
	p, ok := m.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPractice) GetTestcasesByProblemID(_ context.Context, problemID string) ([]model.Testcase, error) {
	return append([]model.Testcase(nil), m.tcs[problemID]...), nil
}

func (m *memPractice) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	return m.subs.GetSubmissionByID(ctx, id)
}

func (m *memPractice) CreateTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error {
	return m.subs.CreateTestcaseResult(ctx, tx, res)
}

func (m *memPractice) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission, requirePending bool) error {
	return m.subs.UpdateSubmissionResult(ctx, tx, sub, requirePending)
}

func (m *memPractice) MarkSystemError(ctx context.Context, id string) error {
	return m.subs.MarkSystemError(ctx, id)
}

func (m *memPractice) ListPendingSubmissionIDs(ctx context.Context) ([]string, error) {
	return m.subs.ListPendingSubmissionIDs(ctx)
}

func (m *memPractice) CountDistinctAttempters(_ context.Context, _ *sql.Tx, problemID string) (int, error) {
	users := map[string]bool{}
	for _, s := range m.subs.subs {
		if s.ProblemID == problemID {
			users[s.UserID] = true
		}
	}
	return len(users), nil
}

func (m *memPractice) CountDistinctSolvers(_ context.Context, _ *sql.Tx, problemID string) (int, error) {
	users := map[string]bool{}
	for _, s := range m.subs.subs {
		if s.ProblemID == problemID && s.Status == model.StatusAccepted {
			users[s.UserID] = true
		}
	}
	return len(users), nil
}

func (m *memPractice) UpdateProblemStats(_ context.Context, _ *sql.Tx, problemID string, attempts, solves int) error {
	p, ok := m.problems[problemID]
	if !ok {
		return common.ErrNotFound
	}
	p.AttemptCount = attempts
	p.SolveCount = solves
	return nil
}

// scriptedJudge answers by stdin. Unknown inputs get Accepted.
type scriptedJudge struct {
	mu       sync.Mutex
	byStdin  map[string]*judge.Result
	err      error
	requests []judge.Request
	onJudge  func()
}

func (j *scriptedJudge) Judge(_ context.Context, req judge.Request) (*judge.Result, error) {
	if j.onJudge != nil {
		j.onJudge()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.requests = append(j.requests, req)
	if j.err != nil {
		return nil, j.err
	}
	if res, ok := j.byStdin[req.Stdin]; ok {
		return res, nil
	}
	return verdict(3, "Accepted", 0.1, 1024), nil
}

func verdict(id int, desc string, seconds, memoryKB float64) *judge.Result {
	t := judge.Seconds(seconds)
	return &judge.Result{
		Status: &judge.Status{ID: id, Description: desc},
		Time:   &t,
		Memory: &memoryKB,
	}
}

type recordingQueue struct {
	jobs []model.EvaluationJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job model.EvaluationJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type recordingInvalidator struct {
	calls [][2]string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, problemID, contestID string) {
	r.calls = append(r.calls, [2]string{problemID, contestID})
}

func (m *memSubmissions) ListSubmissions(_ context.Context, f repository.SubmissionFilter) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = f
	return m.sorted(func(s *model.Submission) bool { return s.UserID == f.UserID }), nil
}
