package ticket

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNormaliseUID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"canonical", "A-B-C", "A-B-C"},
		{"five segments", "A-B-C-D-E", "A-BCD-E"},
		{"ticket layout with inserted segment", "1234-5678-9012-3456", "1234-56789012-3456"},
		{"two segments", "A-B", "A--B"},
		{"single segment", "A", "A--"},
		{"empty", "", "--"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormaliseUID(tt.input); got != tt.want {
				t.Errorf("NormaliseUID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormaliseUID_Idempotent(t *testing.T) {
	for _, raw := range []string{"A-B-C-D-E", "1234-5678-9012-3456", "X-Y-Z"} {
		once := NormaliseUID(raw)
		if twice := NormaliseUID(once); twice != once {
			t.Errorf("NormaliseUID(NormaliseUID(%q)) = %q, want %q", raw, twice, once)
		}
	}
}

func validFields() Fields {
	eet := time.FixedZone("EET", 2*60*60)
	return Fields{
		UID:         "1234-5678-9012-3456",
		Name:        "ШЕВЧЕНКО ТАРАС",
		Train:       "743 К",
		Coach:       "05 П",
		Seat:        "017 Н",
		Origin:      "КИЇВ-ПАСАЖИРСЬКИЙ",
		Destination: "ЛЬВІВ",
		Departure:   time.Date(2021, 12, 24, 14, 5, 0, 0, eet),
		Arrival:     time.Date(2021, 12, 24, 21, 40, 0, 0, eet),
	}
}

func TestBuild(t *testing.T) {
	tk, err := Build(validFields())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if tk.ID != "1234-56789012-3456" {
		t.Errorf("ID = %q, want %q", tk.ID, "1234-56789012-3456")
	}
	if tk.TrainNumber != "743" {
		t.Errorf("TrainNumber = %q, want %q", tk.TrainNumber, "743")
	}
	if tk.Coach != "05" {
		t.Errorf("Coach = %q, want %q", tk.Coach, "05")
	}
	if tk.Seat != "017" {
		t.Errorf("Seat = %q, want %q", tk.Seat, "017")
	}
	if tk.OriginStation != "КИЇВ-ПАСАЖИРСЬКИЙ" {
		t.Errorf("OriginStation = %q", tk.OriginStation)
	}
	wantDep := time.Date(2021, 12, 24, 12, 5, 0, 0, time.UTC)
	if !tk.DepartureAt.Equal(wantDep) || tk.DepartureAt.Location() != time.UTC {
		t.Errorf("DepartureAt = %v, want %v", tk.DepartureAt, wantDep)
	}
}

func TestBuild_ArrivalBeforeDepartureAccepted(t *testing.T) {
	f := validFields()
	f.Departure, f.Arrival = f.Arrival, f.Departure

	if _, err := Build(f); err != nil {
		t.Errorf("Build() error = %v, want nil", err)
	}
}

func TestBuild_EmptyField(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Fields)
	}{
		{"uid", func(f *Fields) { f.UID = " " }},
		{"name", func(f *Fields) { f.Name = "" }},
		{"train", func(f *Fields) { f.Train = "   " }},
		{"coach", func(f *Fields) { f.Coach = "" }},
		{"seat", func(f *Fields) { f.Seat = "" }},
		{"from", func(f *Fields) { f.Origin = "" }},
		{"to", func(f *Fields) { f.Destination = "\t" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)

			_, err := Build(f)
			if !errors.Is(err, ErrEmptyField) {
				t.Fatalf("Build() error = %v, want ErrEmptyField", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Errorf("FieldError.Field = %v, want %q", fe, tt.field)
			}
		})
	}
}

func TestTicket_Pass(t *testing.T) {
	tk, err := Build(validFields())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	p := tk.Pass()
	if p.RelevantDate != "2021-12-24T12:05:00+00:00" {
		t.Errorf("RelevantDate = %q, want %q", p.RelevantDate, "2021-12-24T12:05:00+00:00")
	}
	if p.ExpirationDate != "2021-12-24T19:40:00+00:00" {
		t.Errorf("ExpirationDate = %q, want %q", p.ExpirationDate, "2021-12-24T19:40:00+00:00")
	}
	if p.UID != tk.ID || p.Name != tk.PassengerName || p.Train != "743" {
		t.Errorf("Pass() = %+v", p)
	}
	if p.From != tk.OriginStation || p.To != tk.DestinationStation || p.Seat != "017" || p.Coach != "05" {
		t.Errorf("Pass() = %+v", p)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&LabelError{Label: "Поїзд"}, "label_not_found"},
		{&IndexError{Field: "uid", Index: 7, Len: 3}, "index_out_of_range"},
		{fmt.Errorf("page 2: %w", ErrNoTimeFound), "no_time_found"},
		{&TimestampError{Input: "x"}, "timestamp_format"},
		{&FieldError{Field: "seat"}, "empty_field"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestIndexError_Message(t *testing.T) {
	err := &IndexError{Field: "station", Index: -1, Len: 4}
	if got := err.Error(); got != "station: row not found in 4 tokens" {
		t.Errorf("Error() = %q", got)
	}
	err = &IndexError{Field: "uid", Index: 7, Len: 4}
	if got := err.Error(); got != "uid: index 7 out of range [0:4]" {
		t.Errorf("Error() = %q", got)
	}
}
