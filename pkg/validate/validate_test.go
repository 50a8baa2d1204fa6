package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/bidmarket/pkg/validate"
)

type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"required,in=buyer|supplier"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(registerInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret1",
		Role:     "buyer",
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(registerInput{})
	for _, f := range []string{"username", "email", "password", "role"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected %s to be required", f)
		}
	}
}

func TestEmailRule(t *testing.T) {
	type in struct {
		Email string `json:"email" validate:"required,email"`
	}
	if errs := validate.Struct(in{Email: "not-an-email"}); !validate.HasErrors(errs) {
		t.Error("expected email validation error")
	}
	if errs := validate.Struct(in{Email: "valid@example.com"}); validate.HasErrors(errs) {
		t.Errorf("expected valid email to pass, got: %v", errs)
	}
}

func TestInRule(t *testing.T) {
	type in struct {
		Status string `json:"status" validate:"nullable,in=pending|confirmed|hold"`
	}
	if errs := validate.Struct(in{Status: "shipped"}); !validate.HasErrors(errs) {
		t.Error("expected unknown status to fail")
	}
	if errs := validate.Struct(in{Status: "hold"}); validate.HasErrors(errs) {
		t.Errorf("expected hold to pass, got: %v", errs)
	}
	if errs := validate.Struct(in{}); validate.HasErrors(errs) {
		t.Errorf("nullable empty value should be skipped, got: %v", errs)
	}
}

func TestPointerFields(t *testing.T) {
	type in struct {
		Quantity *int    `json:"quantity" validate:"nullable,gte=1"`
		Date     *string `json:"delivery_date" validate:"required,date"`
	}
	zero := 0
	bad := "15/03/2024"
	errs := validate.Struct(in{Quantity: &zero, Date: &bad})
	if _, ok := errs["quantity"]; !ok {
		t.Error("expected quantity >= 1 error")
	}
	if _, ok := errs["delivery_date"]; !ok {
		t.Error("expected date format error")
	}

	good := "2024-03-15"
	if errs := validate.Struct(in{Date: &good}); validate.HasErrors(errs) {
		t.Errorf("expected pass, got %v", errs)
	}
	if errs := validate.Struct(in{}); errs["delivery_date"] == "" {
		t.Error("nil required pointer should fail")
	}
}

func TestDiveReportsIndexedFields(t *testing.T) {
	type item struct {
		Name string `json:"name" validate:"required"`
	}
	type order struct {
		Items []item `json:"items" validate:"required,dive"`
	}

	errs := validate.Struct(order{Items: []item{{Name: "Apples"}, {}}})
	if _, ok := errs["items.1.name"]; !ok {
		t.Errorf("expected items.1.name error, got %v", errs)
	}
	if _, ok := errs["items.0.name"]; ok {
		t.Error("first item is valid")
	}

	errs = validate.Struct(order{})
	if _, ok := errs["items"]; !ok {
		t.Error("expected items to be required")
	}
}

func TestMinMaxLength(t *testing.T) {
	if errs := validate.Struct(registerInput{Username: "al", Email: "a@b.co", Password: "secret1", Role: "buyer"}); errs["username"] == "" {
		t.Error("expected min length error")
	}
	if errs := validate.Struct(registerInput{Username: "abcdefghijklmnopqrstuvwxyz", Email: "a@b.co", Password: "secret1", Role: "buyer"}); errs["username"] == "" {
		t.Error("expected max length error")
	}
}
