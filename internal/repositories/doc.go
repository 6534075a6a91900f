// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations against a [*sql.DB] with explicit SQL for writes, and builds
// dynamic read queries (filters, free-text search, date ranges, pagination and counts) with Masterminds/squirrel.
//
// Key Implementations:
//   - [UserRepository] : login accounts with email lookups, role changes and verification state
//   - [StudentRepository] : student profiles, roll numbers, active flag and user linking
//   - [AttendanceRepository] : daily present/absent marks, unique per student and date
//   - [PaymentRepository] : fee payments with receipt numbers and due/paid status
//   - [ExpenseRepository] : school running costs by category
//   - [TokenRepository] : one-time email verification tokens
//
// Roll numbers and receipt numbers provide stable, human-readable ordering (e.g. student #42, receipt #1015)
// independent of UUIDs. The [NextSequence] function atomically increments per-table sequence counters in
// dedicated sequence tables.
//
// Deleting a student removes its attendance and payments through ON DELETE CASCADE foreign keys.
// Constraint violations surface as [shared.ErrDuplicate], [shared.ErrDuplicateAttendance] or
// [shared.ErrNotFound] so callers can match them with errors.Is.
package repositories
