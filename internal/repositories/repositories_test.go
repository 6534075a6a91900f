package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createStudent(t *testing.T, repo *StudentRepository, name, email string) *models.Student {
	t.Helper()

	student := models.NewStudent(name, email, models.InstrumentGuitar, models.Grade1, models.BatchWeekday, models.TimingEvening)
	if err := repo.Create(context.Background(), student); err != nil {
		t.Fatalf("failed to create student: %v", err)
	}
	return student
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "payments")
		if err != nil {
			t.Fatalf("failed to get next sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(ctx, db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser("Test User", "  Test@Example.com ")

		if err := repo.Create(ctx, user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if user.ID == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Email != "test@example.com" {
			t.Errorf("expected normalized email, got %q", user.Email)
		}
	})

	t.Run("CreateBootstrapAdmin", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		tests := []struct {
			email string
			role  models.Role
		}{
			{"first@example.com", models.RoleAdmin},
			{"second@example.com", models.RoleUser},
			{"third@example.com", models.RoleUser},
		}
		for _, tt := range tests {
			t.Run(tt.email, func(t *testing.T) {
				user := models.NewUser("Test User", tt.email)
				if err := repo.CreateBootstrapAdmin(ctx, user); err != nil {
					t.Fatalf("failed to create user: %v", err)
				}
				if user.Role != tt.role {
					t.Errorf("expected role %s, got %s", tt.role, user.Role)
				}

				stored, err := repo.Get(ctx, user.ID)
				if err != nil || stored.Role != tt.role {
					t.Errorf("expected stored role %s, got %+v (%v)", tt.role, stored, err)
				}
			})
		}

		if err := repo.CreateBootstrapAdmin(ctx, models.NewUser("Dup", "first@example.com")); !errors.Is(err, shared.ErrDuplicate) {
			t.Errorf("expected duplicate, got %v", err)
		}
	})

	t.Run("CreateBootstrapAdmin Concurrent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				user := models.NewUser("Racer", fmt.Sprintf("racer%d@example.com", i))
				if err := repo.CreateBootstrapAdmin(ctx, user); err != nil {
					t.Errorf("failed to create user: %v", err)
				}
			}()
		}
		wg.Wait()

		admins, err := repo.Count(ctx, models.Criteria{"role": string(models.RoleAdmin)})
		if err != nil {
			t.Fatalf("failed to count admins: %v", err)
		}
		if admins != 1 {
			t.Errorf("expected exactly one admin, got %d", admins)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser("Test User", "test@example.com")
		if err := repo.Create(ctx, user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.Email != user.Email {
			t.Errorf("expected email %s, got %s", user.Email, retrieved.Email)
		}
		if retrieved.Verified() {
			t.Error("new user should not be verified")
		}

		byEmail, err := repo.GetByEmail(ctx, "TEST@example.com")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if byEmail.ID != user.ID {
			t.Errorf("expected ID %s, got %s", user.ID, byEmail.ID)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser("Test User", "test@example.com")
		if err := repo.Create(ctx, user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		user.Name = "Renamed"
		user.PasswordHash = "hash"
		if err := repo.Update(ctx, user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, _ := repo.Get(ctx, user.ID)
		if retrieved.Name != "Renamed" || retrieved.PasswordHash != "hash" {
			t.Errorf("update not persisted: %+v", retrieved)
		}
	})

	t.Run("Role, Verification And Login", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser("Test User", "test@example.com")
		if err := repo.Create(ctx, user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.UpdateRole(ctx, user.ID, models.RoleAdmin); err != nil {
			t.Fatalf("failed to update role: %v", err)
		}
		if err := repo.UpdateRole(ctx, user.ID, models.Role("owner")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input for unknown role, got %v", err)
		}

		now := time.Now().UTC()
		if err := repo.MarkVerified(ctx, user.ID, now); err != nil {
			t.Fatalf("failed to mark verified: %v", err)
		}
		if err := repo.TouchLogin(ctx, user.ID, now); err != nil {
			t.Fatalf("failed to touch login: %v", err)
		}

		retrieved, _ := repo.Get(ctx, user.ID)
		if !retrieved.IsAdmin() {
			t.Error("expected admin role")
		}
		if !retrieved.Verified() {
			t.Error("expected verified user")
		}
		if retrieved.LastLoginAt == nil || !retrieved.LastLoginAt.Equal(now) {
			t.Errorf("expected last login %v, got %v", now, retrieved.LastLoginAt)
		}
	})

	t.Run("List And Count", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		for _, email := range []string{"ana@example.com", "ben@example.com", "cara@example.com"} {
			if err := repo.Create(ctx, models.NewUser(email[:3], email)); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}
		admin, _ := repo.GetByEmail(ctx, "ben@example.com")
		_ = repo.UpdateRole(ctx, admin.ID, models.RoleAdmin)

		all, err := repo.List(ctx, nil)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 users, got %d", len(all))
		}
		if all[0].Name != "ana" {
			t.Errorf("expected users ordered by name, got %s first", all[0].Name)
		}

		admins, _ := repo.List(ctx, models.Criteria{"role": models.RoleAdmin})
		if len(admins) != 1 || admins[0].ID != admin.ID {
			t.Errorf("expected only the admin, got %d users", len(admins))
		}

		count, err := repo.Count(ctx, models.Criteria{"search": "car"})
		if err != nil {
			t.Fatalf("failed to count users: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 match, got %d", count)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)

		t.Run("ValidationError", func(t *testing.T) {
			err := repo.Create(ctx, models.NewUser("", "not-an-email"))
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Fields["email"] == "" || verr.Fields["name"] == "" {
				t.Errorf("expected name and email field errors, got %v", verr.Fields)
			}
		})

		t.Run("DuplicateEmail", func(t *testing.T) {
			if err := repo.Create(ctx, models.NewUser("One", "dup@example.com")); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
			err := repo.Create(ctx, models.NewUser("Two", "DUP@example.com"))
			if !errors.Is(err, shared.ErrDuplicate) {
				t.Errorf("expected duplicate error, got %v", err)
			}
		})

		t.Run("NotFound", func(t *testing.T) {
			if _, err := repo.Get(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected not found on get, got %v", err)
			}
			if err := repo.Delete(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected not found on delete, got %v", err)
			}
			ghost := models.NewUser("Ghost", "ghost@example.com")
			ghost.ID = "missing"
			if err := repo.Update(ctx, ghost); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected not found on update, got %v", err)
			}
		})
	})
}

func TestStudentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create Assigns Roll Numbers", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStudentRepository(db)
		first := createStudent(t, repo, "Asha", "asha@example.com")
		second := createStudent(t, repo, "Ravi", "ravi@example.com")

		if first.RollNumber != 1 || second.RollNumber != 2 {
			t.Errorf("expected roll numbers 1 and 2, got %d and %d", first.RollNumber, second.RollNumber)
		}
	})

	t.Run("Get And Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStudentRepository(db)
		student := createStudent(t, repo, "Asha", "asha@example.com")

		dob := date(2012, time.May, 4)
		student.DateOfBirth = &dob
		student.Grade = models.Grade3
		student.Phone = "555-0101"
		if err := repo.Update(ctx, student); err != nil {
			t.Fatalf("failed to update student: %v", err)
		}

		retrieved, err := repo.Get(ctx, student.ID)
		if err != nil {
			t.Fatalf("failed to get student: %v", err)
		}
		if retrieved.Grade != models.Grade3 || retrieved.Phone != "555-0101" {
			t.Errorf("update not persisted: %+v", retrieved)
		}
		if retrieved.DateOfBirth == nil || !retrieved.DateOfBirth.Equal(dob) {
			t.Errorf("expected date of birth %v, got %v", dob, retrieved.DateOfBirth)
		}
		if retrieved.RollNumber != student.RollNumber {
			t.Errorf("roll number changed on update")
		}
		if !retrieved.Active {
			t.Error("expected student to be active")
		}
	})

	t.Run("SetActive", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStudentRepository(db)
		student := createStudent(t, repo, "Asha", "asha@example.com")

		if err := repo.SetActive(ctx, student.ID, false); err != nil {
			t.Fatalf("failed to deactivate: %v", err)
		}

		retrieved, _ := repo.Get(ctx, student.ID)
		if retrieved.Active {
			t.Error("expected student to be inactive")
		}
	})

	t.Run("LinkUser", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		users := NewUserRepository(db)
		repo := NewStudentRepository(db)
		student := createStudent(t, repo, "Asha", "asha@example.com")

		user := models.NewUser("Asha", "asha@example.com")
		if err := users.Create(ctx, user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.LinkUser(ctx, "ASHA@example.com", user.ID); err != nil {
			t.Fatalf("failed to link user: %v", err)
		}

		linked, err := repo.GetByUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get linked student: %v", err)
		}
		if linked.ID != student.ID || !linked.Linked() {
			t.Errorf("expected linked student %s, got %s", student.ID, linked.ID)
		}

		if err := repo.LinkUser(ctx, "nobody@example.com", user.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found for unknown email, got %v", err)
		}

		if err := users.Delete(ctx, user.ID); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}
		unlinked, _ := repo.Get(ctx, student.ID)
		if unlinked.Linked() {
			t.Error("expected student to be unlinked when the user is deleted")
		}
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStudentRepository(db)
		createStudent(t, repo, "Asha", "asha@example.com")

		dup := models.NewStudent("Other", "Asha@Example.com", models.InstrumentPiano, models.GradeInitial, models.BatchWeekend, models.TimingMorning)
		if err := repo.Create(ctx, dup); !errors.Is(err, shared.ErrDuplicate) {
			t.Errorf("expected duplicate error, got %v", err)
		}

		next := createStudent(t, repo, "Ravi", "ravi@example.com")
		if next.RollNumber != 2 {
			t.Errorf("failed insert should not consume a roll number, got %d", next.RollNumber)
		}
	})

	t.Run("List Filters And Pagination", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewStudentRepository(db)
		for i, name := range []string{"Asha", "Ravi", "Meera", "John", "Zoya"} {
			s := models.NewStudent(name, name+"@example.com", models.InstrumentGuitar, models.Grade1, models.BatchWeekday, models.TimingEvening)
			if i%2 == 1 {
				s.Instrument = models.InstrumentPiano
				s.Batch = models.BatchWeekend
			}
			s.JoinedOn = date(2025, time.Month(i+1), 10)
			if err := repo.Create(ctx, s); err != nil {
				t.Fatalf("failed to create student: %v", err)
			}
		}
		john, _ := repo.GetByEmail(ctx, "john@example.com")
		_ = repo.SetActive(ctx, john.ID, false)

		tc := []struct {
			name     string
			criteria models.Criteria
			want     int
		}{
			{"all", nil, 5},
			{"active", models.Criteria{"active": true}, 4},
			{"inactive", models.Criteria{"active": false}, 1},
			{"instrument", models.Criteria{"instrument": "piano"}, 2},
			{"typed batch", models.Criteria{"batch": models.BatchWeekday}, 3},
			{"search", models.Criteria{"search": "ee"}, 1},
			{"empty search", models.Criteria{"search": "  "}, 5},
			{"joined range", models.Criteria{"joined_from": date(2025, time.February, 1), "joined_to": date(2025, time.April, 1)}, 2},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				students, err := repo.List(ctx, tt.criteria)
				if err != nil {
					t.Fatalf("failed to list students: %v", err)
				}
				if len(students) != tt.want {
					t.Errorf("expected %d students, got %d", tt.want, len(students))
				}
			})
		}

		page, err := repo.Page(ctx, nil, models.Page{Number: 2, Size: 2})
		if err != nil {
			t.Fatalf("failed to page students: %v", err)
		}
		if page.Total != 5 || page.Pages != 3 {
			t.Errorf("expected total 5 over 3 pages, got %d over %d", page.Total, page.Pages)
		}
		if len(page.Items) != 2 || page.Items[0].RollNumber != 3 {
			t.Errorf("expected second page to start at roll number 3, got %+v", page.Items)
		}
		if !page.HasPrev() || !page.HasNext() {
			t.Error("expected middle page to have both neighbours")
		}
	})
}

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		student := createStudent(t, NewStudentRepository(db), "Asha", "asha@example.com")
		repo := NewAttendanceRepository(db)

		mark := models.NewAttendance(student.ID, time.Date(2025, time.March, 3, 17, 30, 0, 0, time.UTC), models.AttendancePresent)
		if err := repo.Create(ctx, mark); err != nil {
			t.Fatalf("failed to create attendance: %v", err)
		}

		retrieved, err := repo.Get(ctx, mark.ID)
		if err != nil {
			t.Fatalf("failed to get attendance: %v", err)
		}
		if !retrieved.Date.Equal(date(2025, time.March, 3)) {
			t.Errorf("expected date truncated to the day, got %v", retrieved.Date)
		}
		if retrieved.StudentName != "Asha" {
			t.Errorf("expected joined student name, got %q", retrieved.StudentName)
		}
	})

	t.Run("Duplicate Attendance Rejected", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		student := createStudent(t, NewStudentRepository(db), "Asha", "asha@example.com")
		repo := NewAttendanceRepository(db)

		day := date(2025, time.March, 3)
		if err := repo.Create(ctx, models.NewAttendance(student.ID, day, models.AttendancePresent)); err != nil {
			t.Fatalf("failed to create attendance: %v", err)
		}

		err := repo.Create(ctx, models.NewAttendance(student.ID, day.Add(9*time.Hour), models.AttendanceAbsent))
		if !errors.Is(err, shared.ErrDuplicateAttendance) {
			t.Errorf("expected duplicate attendance error, got %v", err)
		}

		if err := repo.Create(ctx, models.NewAttendance(student.ID, day.AddDate(0, 0, 1), models.AttendanceAbsent)); err != nil {
			t.Errorf("next day should be accepted: %v", err)
		}
	})

	t.Run("Unknown Student", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttendanceRepository(db)
		err := repo.Create(ctx, models.NewAttendance("missing", date(2025, time.March, 3), models.AttendancePresent))
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found for unknown student, got %v", err)
		}
	})

	t.Run("List, Count And ForDate", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		students := NewStudentRepository(db)
		asha := createStudent(t, students, "Asha", "asha@example.com")
		ravi := createStudent(t, students, "Ravi", "ravi@example.com")
		ravi.Batch = models.BatchWeekend
		_ = students.Update(ctx, ravi)

		repo := NewAttendanceRepository(db)
		marks := []*models.Attendance{
			models.NewAttendance(asha.ID, date(2025, time.March, 1), models.AttendancePresent),
			models.NewAttendance(asha.ID, date(2025, time.March, 2), models.AttendanceAbsent),
			models.NewAttendance(ravi.ID, date(2025, time.March, 1), models.AttendancePresent),
			models.NewAttendance(ravi.ID, date(2025, time.April, 1), models.AttendancePresent),
		}
		for _, m := range marks {
			if err := repo.Create(ctx, m); err != nil {
				t.Fatalf("failed to create attendance: %v", err)
			}
		}

		march := shared.MonthRange(2025, time.March)
		tc := []struct {
			name     string
			criteria models.Criteria
			want     int
		}{
			{"all", nil, 4},
			{"student", models.Criteria{"student_id": asha.ID}, 2},
			{"status", models.Criteria{"status": models.AttendancePresent}, 3},
			{"month", models.Criteria{"from": march.Start, "to": march.End}, 3},
			{"batch", models.Criteria{"batch": "weekend"}, 2},
			{"day", models.Criteria{"date": date(2025, time.March, 1)}, 2},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				count, err := repo.Count(ctx, tt.criteria)
				if err != nil {
					t.Fatalf("failed to count attendance: %v", err)
				}
				if count != tt.want {
					t.Errorf("expected %d marks, got %d", tt.want, count)
				}
			})
		}

		all, _ := repo.List(ctx, nil)
		if !all[0].Date.Equal(date(2025, time.April, 1)) {
			t.Errorf("expected newest mark first, got %v", all[0].Date)
		}

		byStudent, err := repo.ForDate(ctx, date(2025, time.March, 1))
		if err != nil {
			t.Fatalf("failed to get marks for date: %v", err)
		}
		if len(byStudent) != 2 || byStudent[asha.ID] == nil || byStudent[ravi.ID] == nil {
			t.Errorf("expected marks for both students, got %v", byStudent)
		}
	})

	t.Run("Update Onto Marked Date", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		student := createStudent(t, NewStudentRepository(db), "Asha", "asha@example.com")
		repo := NewAttendanceRepository(db)

		first := models.NewAttendance(student.ID, date(2025, time.March, 1), models.AttendancePresent)
		second := models.NewAttendance(student.ID, date(2025, time.March, 2), models.AttendancePresent)
		_ = repo.Create(ctx, first)
		_ = repo.Create(ctx, second)

		second.Date = first.Date
		if err := repo.Update(ctx, second); !errors.Is(err, shared.ErrDuplicateAttendance) {
			t.Errorf("expected duplicate attendance error, got %v", err)
		}

		second.Date = date(2025, time.March, 5)
		second.Status = models.AttendanceAbsent
		if err := repo.Update(ctx, second); err != nil {
			t.Fatalf("failed to update attendance: %v", err)
		}
	})
}

func TestPaymentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create Assigns Receipt Numbers", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		student := createStudent(t, NewStudentRepository(db), "Asha", "asha@example.com")
		repo := NewPaymentRepository(db)

		for want := 1; want <= 2; want++ {
			p := models.NewPayment(student.ID, date(2025, time.March, want), 1500, models.MethodCash, models.PaymentPaid)
			if err := repo.Create(ctx, p); err != nil {
				t.Fatalf("failed to create payment: %v", err)
			}
			if p.ReceiptNumber != want {
				t.Errorf("expected receipt %d, got %d", want, p.ReceiptNumber)
			}
		}
	})

	t.Run("Validation", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPaymentRepository(db)
		p := models.NewPayment("student", date(2025, time.March, 1), 0, models.PaymentMethod("cheque"), models.PaymentDue)

		var verr *models.ValidationError
		if err := repo.Create(ctx, p); !errors.As(err, &verr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if verr.Fields["amount"] == "" || verr.Fields["method"] == "" {
			t.Errorf("expected amount and method errors, got %v", verr.Fields)
		}
	})

	t.Run("MarkPaid And Due", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		student := createStudent(t, NewStudentRepository(db), "Asha", "asha@example.com")
		repo := NewPaymentRepository(db)

		early := models.NewPayment(student.ID, date(2025, time.March, 1), 1500, models.MethodCash, models.PaymentDue)
		late := models.NewPayment(student.ID, date(2025, time.April, 1), 1500, models.MethodCash, models.PaymentDue)
		_ = repo.Create(ctx, early)
		_ = repo.Create(ctx, late)

		due, err := repo.Due(ctx, date(2025, time.March, 31))
		if err != nil {
			t.Fatalf("failed to list due payments: %v", err)
		}
		if len(due) != 1 || due[0].ID != early.ID {
			t.Fatalf("expected only the March payment to be due, got %d", len(due))
		}

		if err := repo.MarkPaid(ctx, early.ID, models.MethodUPI); err != nil {
			t.Fatalf("failed to mark paid: %v", err)
		}

		paid, _ := repo.Get(ctx, early.ID)
		if !paid.Paid() || paid.Method != models.MethodUPI {
			t.Errorf("expected paid via upi, got %s via %s", paid.Status, paid.Method)
		}

		due, _ = repo.Due(ctx, date(2025, time.December, 31))
		if len(due) != 1 || due[0].ID != late.ID {
			t.Errorf("expected only the April payment to remain due, got %d", len(due))
		}
	})

	t.Run("List And Page", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		student := createStudent(t, NewStudentRepository(db), "Asha", "asha@example.com")
		repo := NewPaymentRepository(db)

		for i := 1; i <= 5; i++ {
			status := models.PaymentPaid
			if i > 3 {
				status = models.PaymentDue
			}
			_ = repo.Create(ctx, models.NewPayment(student.ID, date(2025, time.March, i), float64(i*100), models.MethodCash, status))
		}

		paid, err := repo.List(ctx, models.Criteria{"status": "paid"})
		if err != nil {
			t.Fatalf("failed to list payments: %v", err)
		}
		if len(paid) != 3 {
			t.Errorf("expected 3 paid payments, got %d", len(paid))
		}

		page, err := repo.Page(ctx, models.Criteria{"search": "ash"}, models.Page{Number: 1, Size: 2})
		if err != nil {
			t.Fatalf("failed to page payments: %v", err)
		}
		if page.Total != 5 || len(page.Items) != 2 {
			t.Errorf("expected 2 of 5 payments, got %d of %d", len(page.Items), page.Total)
		}
		if page.Items[0].ReceiptNumber != 5 {
			t.Errorf("expected newest receipt first, got %d", page.Items[0].ReceiptNumber)
		}
	})
}

func TestStudentDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	students := NewStudentRepository(db)
	attendance := NewAttendanceRepository(db)
	payments := NewPaymentRepository(db)

	asha := createStudent(t, students, "Asha", "asha@example.com")
	ravi := createStudent(t, students, "Ravi", "ravi@example.com")

	for _, s := range []*models.Student{asha, ravi} {
		_ = attendance.Create(ctx, models.NewAttendance(s.ID, date(2025, time.March, 1), models.AttendancePresent))
		_ = payments.Create(ctx, models.NewPayment(s.ID, date(2025, time.March, 1), 1500, models.MethodCash, models.PaymentPaid))
	}

	if err := students.Delete(ctx, asha.ID); err != nil {
		t.Fatalf("failed to delete student: %v", err)
	}

	if n, _ := attendance.Count(ctx, models.Criteria{"student_id": asha.ID}); n != 0 {
		t.Errorf("expected attendance to cascade, %d rows remain", n)
	}
	if n, _ := payments.Count(ctx, models.Criteria{"student_id": asha.ID}); n != 0 {
		t.Errorf("expected payments to cascade, %d rows remain", n)
	}
	if n, _ := attendance.Count(ctx, nil); n != 1 {
		t.Errorf("expected the other student's attendance to remain, got %d", n)
	}
	if n, _ := payments.Count(ctx, nil); n != 1 {
		t.Errorf("expected the other student's payment to remain, got %d", n)
	}

	if err := students.Delete(ctx, asha.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestExpenseRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewExpenseRepository(db)

	rent := models.NewExpense(date(2025, time.March, 1), 20000, models.ExpenseRent, models.ExpensePaid)
	rent.Description = "March rent"
	strings := models.NewExpense(date(2025, time.March, 15), 1200.5, models.ExpenseInstruments, models.ExpensePending)
	april := models.NewExpense(date(2025, time.April, 1), 20000, models.ExpenseRent, models.ExpensePending)

	for _, e := range []*models.Expense{rent, strings, april} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("failed to create expense: %v", err)
		}
	}

	t.Run("Get", func(t *testing.T) {
		retrieved, err := repo.Get(ctx, strings.ID)
		if err != nil {
			t.Fatalf("failed to get expense: %v", err)
		}
		if retrieved.Amount != 1200.5 || retrieved.Category != models.ExpenseInstruments {
			t.Errorf("unexpected expense %+v", retrieved)
		}
	})

	t.Run("Update", func(t *testing.T) {
		strings.Status = models.ExpensePaid
		if err := repo.Update(ctx, strings); err != nil {
			t.Fatalf("failed to update expense: %v", err)
		}
		retrieved, _ := repo.Get(ctx, strings.ID)
		if retrieved.Status != models.ExpensePaid {
			t.Errorf("expected paid, got %s", retrieved.Status)
		}
	})

	t.Run("List", func(t *testing.T) {
		tc := []struct {
			name     string
			criteria models.Criteria
			want     int
		}{
			{"all", nil, 3},
			{"category", models.Criteria{"category": "rent"}, 2},
			{"status", models.Criteria{"status": models.ExpensePending}, 1},
			{"range", models.Criteria{"from": date(2025, time.March, 1), "to": date(2025, time.April, 1)}, 2},
			{"search", models.Criteria{"search": "march"}, 1},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				items, err := repo.List(ctx, tt.criteria)
				if err != nil {
					t.Fatalf("failed to list expenses: %v", err)
				}
				if len(items) != tt.want {
					t.Errorf("expected %d expenses, got %d", tt.want, len(items))
				}
			})
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, april.ID); err != nil {
			t.Fatalf("failed to delete expense: %v", err)
		}
		if _, err := repo.Get(ctx, april.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found after delete, got %v", err)
		}
	})
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)

	live := models.NewVerificationToken("asha@example.com", time.Hour)
	stale := models.NewVerificationToken("asha@example.com", -time.Minute)
	other := models.NewVerificationToken("ravi@example.com", time.Hour)

	for _, tok := range []*models.VerificationToken{live, stale, other} {
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}
	}

	t.Run("GetByToken", func(t *testing.T) {
		retrieved, err := repo.GetByToken(ctx, live.Token)
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if retrieved.Email != "asha@example.com" || retrieved.Expired(time.Now()) {
			t.Errorf("unexpected token %+v", retrieved)
		}

		if _, err := repo.GetByToken(ctx, "nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		n, err := repo.DeleteExpired(ctx, time.Now())
		if err != nil {
			t.Fatalf("failed to delete expired tokens: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 expired token removed, got %d", n)
		}
	})

	t.Run("DeleteByEmail", func(t *testing.T) {
		n, err := repo.DeleteByEmail(ctx, "ASHA@example.com")
		if err != nil {
			t.Fatalf("failed to delete tokens: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 token removed, got %d", n)
		}

		if _, err := repo.GetByToken(ctx, other.Token); err != nil {
			t.Errorf("other email's token should remain: %v", err)
		}
	})
}
