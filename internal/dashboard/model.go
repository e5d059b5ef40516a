package dashboard

import "time"

// KPIs are the headline counters for the clinic dashboard. All counts are
// scoped to the requested range except ActivePatients, which is global.
type KPIs struct {
	ActivePatients        int `json:"pacientesActivos"`
	UpcomingAppointments  int `json:"citasFuturas"`
	CancelledAppointments int `json:"citasCanceladas"`
	Notes                 int `json:"notas"`
	NewPatients           int `json:"pacientesNuevos"`
}

// DayCount is one bar of the appointments-by-day chart. Date is a local
// calendar day in clinic time, formatted 2006-01-02.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StatusCount groups appointments by their estado value.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// StateCount groups patients by their estado_proceso value.
type StateCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// Charts holds the chart series. AppointmentsByDay is zero-filled: every
// day in the range appears exactly once, in order.
type Charts struct {
	AppointmentsByDay    []DayCount    `json:"appointmentsByDay"`
	AppointmentsByStatus []StatusCount `json:"appointmentsByStatus"`
	PatientsByState      []StateCount  `json:"patientsByState"`
}

// RangeInfo echoes the resolved reporting window back to the caller.
type RangeInfo struct {
	From string `json:"from"`
	To   string `json:"to"`
	TZ   string `json:"tz"`
}

// Data is the full dashboard payload.
type Data struct {
	Range  RangeInfo `json:"range"`
	KPIs   KPIs      `json:"kpis"`
	Charts Charts    `json:"charts"`
}

// Range is a half-open reporting window [From, To) in clinic time.
type Range struct {
	From time.Time
	To   time.Time
}
