package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenKind selects one of the two single-use secrets kept on a users
// row.  Each kind has its own columns, so a login code can never be
// redeemed as a verification link or the other way round.
type TokenKind int

const (
	// EmailVerification is the link token sent after registration.
	EmailVerification TokenKind = iota
	// LoginOTP is the 6-digit passwordless login code.
	LoginOTP
)

func (k TokenKind) columns() (token, expires string) {
	if k == LoginOTP {
		return "login_otp", "login_otp_expires_at"
	}
	return "verification_token", "verification_expires_at"
}

// TokenRepo manages the single-use OTP and email verification tokens kept
// on the users row.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// Store sets the pending token of kind for a user, replacing any earlier
// one of the same kind.
func (r *TokenRepo) Store(ctx context.Context, kind TokenKind, userID uint64, token string, exp time.Time) error {
	tokCol, expCol := kind.columns()
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+tokCol+"=?, "+expCol+"=?, updated_at=? WHERE id=?",
		token, exp.UTC().Truncate(time.Second), now(), userID)
	return affectedOne(res, err)
}

// Consume clears the token of userID if it equals token and has not
// expired at t.  The compare and clear happen in one UPDATE, so a code can
// be redeemed once even under concurrent submissions.  markVerified also
// flips email_verified.  A mismatch or expired token yields ErrNotFound.
func (r *TokenRepo) Consume(ctx context.Context, kind TokenKind, userID uint64, token string, t time.Time, markVerified bool) error {
	if token == "" {
		return ErrNotFound
	}
	tokCol, expCol := kind.columns()
	q := "UPDATE users SET " + tokCol + "=NULL, " + expCol + "=NULL, updated_at=?"
	if markVerified {
		q += ", email_verified=1"
	}
	q += " WHERE id=? AND " + tokCol + "=? AND (" + expCol + " IS NULL OR " + expCol + " > ?)"
	res, err := r.db.ExecContext(ctx, q, now(), userID, token, t.UTC().Truncate(time.Second))
	return affectedOne(res, err)
}

// ConsumeByToken redeems an email verification token without knowing the
// user up front.  Only unverified users match.  It returns the id of the
// verified user.
func (r *TokenRepo) ConsumeByToken(ctx context.Context, token string, t time.Time) (uint64, error) {
	if token == "" {
		return 0, ErrNotFound
	}
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE verification_token=? AND email_verified=0 LIMIT 1", token).Scan(&id)
	if err != nil {
		return 0, notFound(err)
	}
	if err := r.Consume(ctx, EmailVerification, id, token, t, true); err != nil {
		return 0, err
	}
	return id, nil
}

// Clear drops the pending token of kind for a user.
func (r *TokenRepo) Clear(ctx context.Context, kind TokenKind, userID uint64) error {
	tokCol, expCol := kind.columns()
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET "+tokCol+"=NULL, "+expCol+"=NULL, updated_at=? WHERE id=?",
		now(), userID)
	return err
}

// SweepExpired clears every token of either kind that expired before t
// and returns how many tokens were dropped.
func (r *TokenRepo) SweepExpired(ctx context.Context, t time.Time) (int64, error) {
	cutoff := t.UTC().Truncate(time.Second)
	var total int64
	for _, kind := range []TokenKind{EmailVerification, LoginOTP} {
		tokCol, expCol := kind.columns()
		res, err := r.db.ExecContext(ctx,
			"UPDATE users SET "+tokCol+"=NULL, "+expCol+"=NULL"+
				" WHERE "+tokCol+" IS NOT NULL AND "+expCol+" IS NOT NULL AND "+expCol+" <= ?",
			cutoff)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
