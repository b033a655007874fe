package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/uptrace/bun"

	"clinicbook/backend/internal/domain"
	"clinicbook/backend/internal/store/postgres"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("CLINICBOOK_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		log.Fatal("CLINICBOOK_DATABASE_URL is required")
	}

	db, err := postgres.Open(dsn, postgres.PoolConfig{MaxOpenConns: 4})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer func() {
		_ = postgres.Close(db)
	}()

	gofakeit.Seed(time.Now().UnixNano())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doctors := 20
	if err := seedSchedules(ctx, db, doctors); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

// seedSchedules gives each doctor a plausible working week: morning and
// afternoon windows Monday through Friday, a lunch break, and the occasional
// unavailability stretch.
func seedSchedules(ctx context.Context, db *bun.DB, doctors int) error {
	log.Printf("seeding schedules for %d doctors", doctors)

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := 0; i < doctors; i++ {
			doctorID := fmt.Sprintf("doctor-%03d", i+1)

			for weekday := time.Monday; weekday <= time.Friday; weekday++ {
				// Some doctors skip a weekday entirely.
				if gofakeit.Number(0, 9) == 0 {
					continue
				}

				startMinute := gofakeit.Number(8, 10) * 60
				endMinute := gofakeit.Number(16, 18) * 60
				breakStart := 12 * 60
				breakEnd := breakStart + gofakeit.Number(2, 4)*15

				tpl := domain.AvailabilityTemplate{
					DoctorID:    doctorID,
					Weekday:     weekday,
					StartMinute: startMinute,
					EndMinute:   endMinute,
					BreakStart:  &breakStart,
					BreakEnd:    &breakEnd,
					Active:      true,
				}
				if err := tpl.Validate(); err != nil {
					return fmt.Errorf("%s %s: %w", doctorID, weekday, err)
				}
				if _, err := tx.NewInsert().Model(&tpl).Exec(ctx); err != nil {
					return err
				}
			}

			// Roughly a third of doctors have a vacation on the books.
			if gofakeit.Number(0, 2) == 0 {
				start := time.Now().UTC().AddDate(0, 0, gofakeit.Number(10, 60))
				start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
				period := domain.UnavailabilityPeriod{
					DoctorID:  doctorID,
					StartDate: start,
					EndDate:   start.AddDate(0, 0, gofakeit.Number(1, 14)),
					Reason:    "vacation",
				}
				if _, err := tx.NewInsert().Model(&period).Exec(ctx); err != nil {
					return err
				}
			}

			log.Printf("seeded %s", doctorID)
		}
		return nil
	})
}
