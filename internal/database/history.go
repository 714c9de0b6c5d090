package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/ageofchess/internal/models"
	"github.com/jason-s-yu/ageofchess/internal/rating"
)

// categorySQL buckets a session the way rating.CategoryFor does.
const categorySQL = `CASE
	WHEN NOT time_control_enabled THEN 'slow'
	WHEN start_time_minutes <= 1 THEN 'bullet'
	WHEN start_time_minutes <= 5 THEN 'blitz'
	ELSE 'rapid' END`

// untimedSortValue places untimed games after every clock in a time-control sort.
const untimedSortValue = 1<<31 - 1

// historyOrder is the ORDER BY expression per sort column. $1 is the player.
var historyOrder = map[models.HistorySort]string{
	models.SortEndedAt:     `ended_at`,
	models.SortResult:      `result COLLATE "C"`,
	models.SortEloDelta:    `CASE WHEN white_user_id = $1 THEN white_elo_delta ELSE black_elo_delta END`,
	models.SortTimeControl: `CASE WHEN time_control_enabled THEN start_time_minutes * 60 + time_increment_seconds ELSE 2147483647 END`,
	models.SortMoveCount:   `move_count`,
	models.SortBoardSize:   `board_size`,
	models.SortOpponent:    `(CASE WHEN white_user_id = $1 THEN black_name ELSE white_name END) COLLATE "C"`,
}

const historyFilter = `(white_user_id = $1 OR black_user_id = $1) AND result <> ''
	AND ($2 = '' OR ` + categorySQL + ` = $2)`

// ListFinishedGamesByUser pages through the finished games userID sat in. Ties on the
// sort column fall back to most recent first.
func (PGStore) ListFinishedGamesByUser(ctx context.Context, userID uuid.UUID, q models.HistoryQuery) (models.HistoryPage, error) {
	order, ok := historyOrder[q.Sort]
	if !ok {
		order = historyOrder[models.SortEndedAt]
	}
	dir := "DESC"
	if q.Asc {
		dir = "ASC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = models.HistoryPageSize
	}

	var page models.HistoryPage
	err := DB.QueryRow(ctx, `SELECT COUNT(*) FROM game_sessions WHERE `+historyFilter, userID, q.Category).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("count history for %s: %w", userID, err)
	}

	sql := `SELECT ` + sessionColumns + `, opponent_username FROM (
			SELECT g.*, COALESCE(u.username, '') AS opponent_username
			FROM game_sessions g
			LEFT JOIN users u
			  ON u.id = CASE WHEN g.white_user_id = $1 THEN g.black_user_id ELSE g.white_user_id END
		) h
		WHERE ` + historyFilter + `
		ORDER BY ` + order + ` ` + dir + ` NULLS LAST, ended_at DESC, id
		LIMIT $3 OFFSET $4`
	rows, err := DB.Query(ctx, sql, userID, q.Category, limit, q.Offset)
	if err != nil {
		return page, fmt.Errorf("list history for %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var opp string
		s, err := scanSession(rows, &opp)
		if err != nil {
			return page, err
		}
		page.Games = append(page.Games, models.HistoryEntry{Session: *s, OpponentUsername: opp})
	}
	return page, rows.Err()
}

// CategoryRecords counts userID's finished games, wins and losses per rating category.
// Every category is present, with zeros where nothing was played.
func (PGStore) CategoryRecords(ctx context.Context, userID uuid.UUID) ([]models.CategoryRecord, error) {
	rows, err := DB.Query(ctx, `
		SELECT cat,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE side IN ('w', 'b') AND (side = 'w') = is_white),
		       COUNT(*) FILTER (WHERE side IN ('w', 'b') AND (side = 'w') <> is_white),
		       COUNT(*) FILTER (WHERE side NOT IN ('w', 'b'))
		FROM (
			SELECT `+categorySQL+` AS cat, left(result, 1) AS side,
			       COALESCE(white_user_id = $1, FALSE) AS is_white
			FROM game_sessions
			WHERE (white_user_id = $1 OR black_user_id = $1) AND result <> ''
		) t
		GROUP BY cat`, userID)
	if err != nil {
		return nil, fmt.Errorf("category records for %s: %w", userID, err)
	}
	defer rows.Close()

	found := make(map[string]models.CategoryRecord)
	for rows.Next() {
		r := models.CategoryRecord{UserID: userID}
		if err := rows.Scan(&r.Category, &r.Games, &r.Wins, &r.Losses, &r.Draws); err != nil {
			return nil, err
		}
		found[r.Category] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fillRecords(userID, found), nil
}

func fillRecords(userID uuid.UUID, found map[string]models.CategoryRecord) []models.CategoryRecord {
	out := make([]models.CategoryRecord, 0, len(rating.Categories))
	for _, cat := range rating.Categories {
		r, ok := found[string(cat)]
		if !ok {
			r = models.CategoryRecord{UserID: userID, Category: string(cat)}
		}
		out = append(out, r)
	}
	return out
}

// historyKey is one session's value in a sort column. Null values sort last in either
// direction, matching NULLS LAST above.
type historyKey struct {
	null bool
	n    int64
	s    string
}

func keyFor(s *models.GameSession, userID uuid.UUID, col models.HistorySort) historyKey {
	switch col {
	case models.SortResult:
		return historyKey{s: s.Result}
	case models.SortEloDelta:
		if d := s.EloDeltaFor(userID); d != nil {
			return historyKey{n: int64(*d)}
		}
		return historyKey{null: true}
	case models.SortTimeControl:
		if !s.TimeControlEnabled {
			return historyKey{n: untimedSortValue}
		}
		return historyKey{n: int64(s.StartTimeMinutes*60 + s.TimeIncrementSeconds)}
	case models.SortMoveCount:
		return historyKey{n: int64(s.MoveCount)}
	case models.SortBoardSize:
		return historyKey{n: int64(s.BoardSize)}
	case models.SortOpponent:
		return historyKey{s: s.OpponentName(userID)}
	default:
		if s.EndedAt == nil {
			return historyKey{null: true}
		}
		return historyKey{n: s.EndedAt.UnixNano()}
	}
}

func (k historyKey) compare(o historyKey) int {
	switch {
	case k.n < o.n || (k.n == o.n && k.s < o.s):
		return -1
	case k.n > o.n || k.s > o.s:
		return 1
	}
	return 0
}

// historyLess orders a before b for q from userID's point of view.
func historyLess(a, b *models.GameSession, userID uuid.UUID, q models.HistoryQuery) bool {
	ka, kb := keyFor(a, userID, q.Sort), keyFor(b, userID, q.Sort)
	if ka.null != kb.null {
		return kb.null
	}
	if c := ka.compare(kb); c != 0 {
		if q.Asc {
			return c < 0
		}
		return c > 0
	}
	if ea, eb := endedAt(a), endedAt(b); !ea.Equal(eb) {
		return ea.After(eb)
	}
	return a.ID.String() < b.ID.String()
}

func endedAt(s *models.GameSession) time.Time {
	if s.EndedAt == nil {
		return time.Time{}
	}
	return *s.EndedAt
}

// recordFor adds one finished session to userID's tally.
func recordFor(r *models.CategoryRecord, s *models.GameSession, userID uuid.UUID) {
	r.Games++
	switch s.Outcome(userID) {
	case "win":
		r.Wins++
	case "loss":
		r.Losses++
	default:
		r.Draws++
	}
}
