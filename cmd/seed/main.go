package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"strings"
	"time"

	"clinic-scheduling/internal/auth"
	"clinic-scheduling/internal/configs"
	"clinic-scheduling/internal/database"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	insertUserQuery    = "INSERT INTO tb_user (uuid, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id"
	insertDoctorQuery  = "INSERT INTO tb_doctor (uuid, user_id, name, email, mobile_phone, specialty, consulting_fee, available_days, available_time_ranges) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)"
	insertPatientQuery = "INSERT INTO tb_patient (uuid, user_id, name, email, mobile_phone) VALUES ($1, $2, $3, $4, $5)"
)

var (
	configPath = flag.String("config", "", "Config file path")
	doctors    = flag.Int("doctors", 10, "Number of doctors to create")
	patients   = flag.Int("patients", 100, "Number of patients to create")
	password   = flag.String("password", "secret", "Password shared by every seeded user")
)

var specialties = []string{
	"Cardiology",
	"Dermatology",
	"Endocrinology",
	"General Practice",
	"Neurology",
	"Orthopedics",
	"Pediatrics",
	"Psychiatry",
}

var shifts = [][]string{
	{"08:00-12:00"},
	{"09:00-12:00", "13:00-17:00"},
	{"13:00-19:00"},
	{},
}

// randomDays picks a non empty set of weekdays, Monday to Saturday.
func randomDays() pq.Int64Array {
	days := pq.Int64Array{}
	for day := int64(1); day <= 6; day++ {
		if gofakeit.Number(0, 2) > 0 {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		days = append(days, int64(gofakeit.Number(1, 5)))
	}
	return days
}

func email(name, domain string) string {
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	return fmt.Sprintf("%s.%s@%s", local, gofakeit.LetterN(4), domain)
}

func insertUser(ctx context.Context, tx *sql.Tx, email, hash string, role auth.Role) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, insertUserQuery, uuid.New(), email, hash, string(role)).Scan(&id)
	return id, err
}

func seedAdmin(ctx context.Context, tx *sql.Tx, hash string) error {
	_, err := insertUser(ctx, tx, "admin@clinic.com", hash, auth.AdminRole)
	return err
}

func seedDoctors(ctx context.Context, tx *sql.Tx, hash string, count int) error {
	for i := 0; i < count; i++ {
		name := "Dr. " + gofakeit.Name()
		mail := email(name, "clinic.com")
		userID, err := insertUser(ctx, tx, mail, hash, auth.DoctorRole)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insertDoctorQuery,
			uuid.New(),
			userID,
			name,
			mail,
			gofakeit.Phone(),
			specialties[gofakeit.Number(0, len(specialties)-1)],
			float64(gofakeit.Number(50, 300)),
			randomDays(),
			pq.StringArray(shifts[gofakeit.Number(0, len(shifts)-1)]),
		)
		if err != nil {
			return err
		}
	}
	log.Info().Int("count", count).Msg("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, tx *sql.Tx, hash string, count int) error {
	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		mail := email(name, "patients.clinic.com")
		userID, err := insertUser(ctx, tx, mail, hash, auth.PatientRole)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, insertPatientQuery, uuid.New(), userID, name, mail, gofakeit.Phone()); err != nil {
			return err
		}
	}
	log.Info().Int("count", count).Msg("patients seeded")
	return nil
}

func seed(ctx context.Context, db *sql.DB, hash string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err = seedAdmin(ctx, tx, hash); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err = seedDoctors(ctx, tx, hash, *doctors); err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	if err = seedPatients(ctx, tx, hash, *patients); err != nil {
		return fmt.Errorf("seed patients: %w", err)
	}
	return tx.Commit()
}

func main() {
	flag.Parse()
	if *configPath == "" {
		log.Fatal().Msg("no config file path was given")
	}
	config, err := configs.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	dbConn, err := database.NewConnection(config)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to the database")
	}
	defer dbConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err = database.Migrate(ctx, dbConn); err != nil {
		log.Fatal().Err(err).Msg("could not migrate the database")
	}
	hash, err := auth.EncryptPassword(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("could not encrypt the password")
	}
	if err = seed(ctx, dbConn.DB(), hash); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Msg("seed complete")
}
