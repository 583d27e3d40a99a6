package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/ids"
	"github.com/OpenChargingCloud/OpenChargingCloudAPI-sub000/backend/services/roaming-api/internal/network"
)

// ErrDuplicateCDR is returned when a record for the session was already stored.
var ErrDuplicateCDR = errors.New("repository: charge detail record already stored")

const schema = `
	CREATE TABLE IF NOT EXISTS charge_detail_records (
		id                BIGSERIAL PRIMARY KEY,
		network_id        TEXT NOT NULL,
		session_id        TEXT NOT NULL,
		evse_id           TEXT NOT NULL,
		operator_id       TEXT NOT NULL,
		provider_id       TEXT NOT NULL DEFAULT '',
		reservation_id    TEXT NOT NULL DEFAULT '',
		product_id        TEXT NOT NULL DEFAULT '',
		auth_token        TEXT NOT NULL DEFAULT '',
		emaid             TEXT NOT NULL DEFAULT '',
		session_start     TIMESTAMPTZ NOT NULL,
		session_end       TIMESTAMPTZ NOT NULL,
		charge_start      TIMESTAMPTZ NOT NULL,
		charge_end        TIMESTAMPTZ NOT NULL,
		meter_value_start DOUBLE PRECISION NOT NULL,
		meter_value_end   DOUBLE PRECISION NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (network_id, session_id)
	)
`

// CDRRepository persists forwarded charge detail records.
type CDRRepository struct {
	db *sql.DB
}

// NewCDRRepository returns repository.
func NewCDRRepository(db *sql.DB) *CDRRepository {
	return &CDRRepository{db: db}
}

// EnsureSchema creates the table when missing.
func (r *CDRRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save stores one record. A second record for the same session fails with
// ErrDuplicateCDR.
func (r *CDRRepository) Save(ctx context.Context, cdr network.ChargeDetailRecord) error {
	const query = `
		INSERT INTO charge_detail_records (
			network_id, session_id, evse_id, operator_id, provider_id, reservation_id, product_id,
			auth_token, emaid, session_start, session_end, charge_start, charge_end,
			meter_value_start, meter_value_end
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (network_id, session_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		cdr.NetworkID.String(),
		cdr.SessionID.String(),
		cdr.EVSEID.String(),
		cdr.OperatorID.String(),
		cdr.ProviderID.String(),
		cdr.ReservationID.String(),
		cdr.ProductID.String(),
		cdr.Identification.AuthToken.String(),
		cdr.Identification.EMAID.String(),
		cdr.SessionStart,
		cdr.SessionEnd,
		cdr.ChargeStart,
		cdr.ChargeEnd,
		cdr.MeterValueStart,
		cdr.MeterValueEnd,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateCDR
	}
	return nil
}

// ListByNetwork returns the latest records of a network.
func (r *CDRRepository) ListByNetwork(ctx context.Context, networkID ids.RoamingNetworkID, limit int) ([]network.ChargeDetailRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT network_id, session_id, evse_id, operator_id, provider_id, reservation_id, product_id,
			auth_token, emaid, session_start, session_end, charge_start, charge_end,
			meter_value_start, meter_value_end
		FROM charge_detail_records
		WHERE network_id = $1
		ORDER BY session_end DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, networkID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cdrs []network.ChargeDetailRecord
	for rows.Next() {
		var cdr network.ChargeDetailRecord
		if err := rows.Scan(
			&cdr.NetworkID,
			&cdr.SessionID,
			&cdr.EVSEID,
			&cdr.OperatorID,
			&cdr.ProviderID,
			&cdr.ReservationID,
			&cdr.ProductID,
			&cdr.Identification.AuthToken,
			&cdr.Identification.EMAID,
			&cdr.SessionStart,
			&cdr.SessionEnd,
			&cdr.ChargeStart,
			&cdr.ChargeEnd,
			&cdr.MeterValueStart,
			&cdr.MeterValueEnd,
		); err != nil {
			return nil, err
		}
		cdrs = append(cdrs, cdr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cdrs, nil
}
