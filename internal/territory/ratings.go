package territory

import (
	"github.com/google/uuid"

	"skyclaim.ai/internal/errs"
)

// Rating is a one to five star score. RatingUnknown means no rating.
type Rating int

const (
	RatingUnknown Rating = iota
	RatingOne
	RatingTwo
	RatingThree
	RatingFour
	RatingFive
)

func (r Rating) Valid() bool { return r >= RatingUnknown && r <= RatingFive }

// SetRating records id's rating. Setting RatingUnknown removes it.
func (t *Territory) SetRating(id uuid.UUID, r Rating) error {
	const op = "set_rating"
	return t.mutate(op, func() ([]Delta, error) {
		if id == uuid.Nil {
			return nil, errs.Validation(op, "player id must not be nil")
		}
		if !r.Valid() {
			return nil, errs.Validation(op, "rating must be within 0..5, got %d", int(r))
		}
		if r == RatingUnknown {
			if _, ok := t.ratings[id]; !ok {
				return nil, nil
			}
			delete(t.ratings, id)
		} else {
			t.ratings[id] = r
		}
		return t.deltas(DeltaRatings), nil
	})
}

func (t *Territory) RemoveRating(id uuid.UUID) error { return t.SetRating(id, RatingUnknown) }

func (t *Territory) RatingOf(id uuid.UUID) (Rating, error) {
	return view(t, "rating_of", func() Rating { return t.ratings[id] })
}

func (t *Territory) RatingsCount() (int, error) {
	return view(t, "ratings_count", func() int { return len(t.ratings) })
}

// AverageRating is the arithmetic mean of all ratings, 0 when there are none.
func (t *Territory) AverageRating() (float64, error) {
	return view(t, "average_rating", func() float64 {
		if len(t.ratings) == 0 {
			return 0
		}
		var sum int
		for _, r := range t.ratings {
			sum += int(r)
		}
		return float64(sum) / float64(len(t.ratings))
	})
}

func (t *Territory) Ratings() (map[uuid.UUID]Rating, error) {
	return view(t, "ratings", t.ratingsCopy)
}

func (t *Territory) ratingsCopy() map[uuid.UUID]Rating {
	out := make(map[uuid.UUID]Rating, len(t.ratings))
	for k, v := range t.ratings {
		out[k] = v
	}
	return out
}
