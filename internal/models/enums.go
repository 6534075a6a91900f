package models

// enum is an ordered set of string values with display labels.
type enum[T ~string] struct {
	order  []T
	labels map[T]string
}

func newEnum[T ~string](pairs ...[2]string) enum[T] {
	e := enum[T]{labels: make(map[T]string, len(pairs))}
	for _, p := range pairs {
		v := T(p[0])
		e.order = append(e.order, v)
		e.labels[v] = p[1]
	}
	return e
}

func (e enum[T]) valid(v T) bool {
	_, ok := e.labels[v]
	return ok
}

func (e enum[T]) label(v T) string {
	if l, ok := e.labels[v]; ok {
		return l
	}
	return string(v)
}

func (e enum[T]) all() []T {
	return append([]T(nil), e.order...)
}

// Role gates access to the admin area.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var roles = newEnum[Role]([2]string{"admin", "Administrator"}, [2]string{"user", "User"})

func (r Role) Valid() bool { return roles.valid(r) }
func (r Role) Label() string { return roles.label(r) }
func Roles() []Role { return roles.all() }
func (r Role) IsAdmin() bool { return r == RoleAdmin }
func (r Role) String() string { return string(r) }

// Instrument taught at the school.
type Instrument string

const (
	InstrumentGuitar   Instrument = "guitar"
	InstrumentPiano    Instrument = "piano"
	InstrumentKeyboard Instrument = "keyboard"
	InstrumentDrums    Instrument = "drums"
	InstrumentViolin   Instrument = "violin"
	InstrumentVocals   Instrument = "vocals"
	InstrumentUkulele  Instrument = "ukulele"
	InstrumentFlute    Instrument = "flute"
)

var instruments = newEnum[Instrument](
	[2]string{"guitar", "Guitar"},
	[2]string{"piano", "Piano"},
	[2]string{"keyboard", "Keyboard"},
	[2]string{"drums", "Drums"},
	[2]string{"violin", "Violin"},
	[2]string{"vocals", "Vocals"},
	[2]string{"ukulele", "Ukulele"},
	[2]string{"flute", "Flute"},
)

func (i Instrument) Valid() bool { return instruments.valid(i) }
func (i Instrument) Label() string { return instruments.label(i) }
func Instruments() []Instrument { return instruments.all() }

// Grade is the exam level a student is working towards.
type Grade string

const (
	GradeInitial Grade = "initial"
	Grade1       Grade = "grade_1"
	Grade2       Grade = "grade_2"
	Grade3       Grade = "grade_3"
	Grade4       Grade = "grade_4"
	Grade5       Grade = "grade_5"
	Grade6       Grade = "grade_6"
	Grade7       Grade = "grade_7"
	Grade8       Grade = "grade_8"
)

var grades = newEnum[Grade](
	[2]string{"initial", "Initial"},
	[2]string{"grade_1", "Grade 1"},
	[2]string{"grade_2", "Grade 2"},
	[2]string{"grade_3", "Grade 3"},
	[2]string{"grade_4", "Grade 4"},
	[2]string{"grade_5", "Grade 5"},
	[2]string{"grade_6", "Grade 6"},
	[2]string{"grade_7", "Grade 7"},
	[2]string{"grade_8", "Grade 8"},
)

func (g Grade) Valid() bool { return grades.valid(g) }
func (g Grade) Label() string { return grades.label(g) }
func Grades() []Grade { return grades.all() }

// Batch groups classes by the days they run.
type Batch string

const (
	BatchWeekday Batch = "weekday"
	BatchWeekend Batch = "weekend"
)

var batches = newEnum[Batch]([2]string{"weekday", "Weekday (Mon–Fri)"}, [2]string{"weekend", "Weekend (Sat–Sun)"})

func (b Batch) Valid() bool { return batches.valid(b) }
func (b Batch) Label() string { return batches.label(b) }
func Batches() []Batch { return batches.all() }

// Timing is the class slot within a batch day.
type Timing string

const (
	TimingMorning   Timing = "morning"
	TimingAfternoon Timing = "afternoon"
	TimingEvening   Timing = "evening"
)

var timings = newEnum[Timing](
	[2]string{"morning", "Morning (9–12)"},
	[2]string{"afternoon", "Afternoon (12–4)"},
	[2]string{"evening", "Evening (4–8)"},
)

func (t Timing) Valid() bool { return timings.valid(t) }
func (t Timing) Label() string { return timings.label(t) }
func Timings() []Timing { return timings.all() }

// AttendanceStatus marks whether a student attended on a date.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

var attendanceStatuses = newEnum[AttendanceStatus]([2]string{"present", "Present"}, [2]string{"absent", "Absent"})

func (s AttendanceStatus) Valid() bool { return attendanceStatuses.valid(s) }
func (s AttendanceStatus) Label() string { return attendanceStatuses.label(s) }
func AttendanceStatuses() []AttendanceStatus {
	return attendanceStatuses.all()
}

// PaymentStatus is due until the fee is collected.
type PaymentStatus string

const (
	PaymentDue  PaymentStatus = "due"
	PaymentPaid PaymentStatus = "paid"
)

var paymentStatuses = newEnum[PaymentStatus]([2]string{"due", "Due"}, [2]string{"paid", "Paid"})

func (s PaymentStatus) Valid() bool { return paymentStatuses.valid(s) }
func (s PaymentStatus) Label() string { return paymentStatuses.label(s) }
func PaymentStatuses() []PaymentStatus { return paymentStatuses.all() }

// PaymentMethod records how a fee was paid.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodUPI          PaymentMethod = "upi"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

var paymentMethods = newEnum[PaymentMethod](
	[2]string{"cash", "Cash"},
	[2]string{"upi", "UPI"},
	[2]string{"card", "Card"},
	[2]string{"bank_transfer", "Bank transfer"},
)

func (m PaymentMethod) Valid() bool { return paymentMethods.valid(m) }
func (m PaymentMethod) Label() string { return paymentMethods.label(m) }
func PaymentMethods() []PaymentMethod { return paymentMethods.all() }

// ExpenseCategory buckets school running costs.
type ExpenseCategory string

const (
	ExpenseRent        ExpenseCategory = "rent"
	ExpenseSalary      ExpenseCategory = "salary"
	ExpenseUtilities   ExpenseCategory = "utilities"
	ExpenseInstruments ExpenseCategory = "instruments"
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseMarketing   ExpenseCategory = "marketing"
	ExpenseOther       ExpenseCategory = "other"
)

var expenseCategories = newEnum[ExpenseCategory](
	[2]string{"rent", "Rent"},
	[2]string{"salary", "Salaries"},
	[2]string{"utilities", "Utilities"},
	[2]string{"instruments", "Instruments & equipment"},
	[2]string{"maintenance", "Maintenance"},
	[2]string{"marketing", "Marketing"},
	[2]string{"other", "Other"},
)

func (c ExpenseCategory) Valid() bool { return expenseCategories.valid(c) }
func (c ExpenseCategory) Label() string { return expenseCategories.label(c) }
func ExpenseCategories() []ExpenseCategory { return expenseCategories.all() }

// ExpenseStatus is pending until the bill is settled.
type ExpenseStatus string

const (
	ExpensePaid    ExpenseStatus = "paid"
	ExpensePending ExpenseStatus = "pending"
)

var expenseStatuses = newEnum[ExpenseStatus]([2]string{"paid", "Paid"}, [2]string{"pending", "Pending"})

func (s ExpenseStatus) Valid() bool { return expenseStatuses.valid(s) }
func (s ExpenseStatus) Label() string { return expenseStatuses.label(s) }
func ExpenseStatuses() []ExpenseStatus { return expenseStatuses.all() }
