package models

import "testing"

func TestIsValidModule(t *testing.T) {
	for _, m := range PermissionModules {
		if !IsValidModule(m) {
			t.Errorf("Expected %s to be a valid module", m)
		}
	}
	if IsValidModule("payroll") {
		t.Error("Expected payroll not to be a matrix module")
	}
	if IsValidModule("") {
		t.Error("Expected empty string not to be a valid module")
	}
}

func TestPermissionMatrixValidate(t *testing.T) {
	tests := []struct {
		name    string
		matrix  PermissionMatrix
		wantErr bool
	}{
		{
			name: "valid matrix",
			matrix: PermissionMatrix{
				"employee": {"hr": {View: true}, "chat": {View: true, Edit: true}},
				"manager":  {"consulting": {View: true, Edit: true}},
			},
		},
		{
			name:   "empty matrix",
			matrix: PermissionMatrix{},
		},
		{
			name: "unknown role",
			matrix: PermissionMatrix{
				"superuser": {"hr": {View: true}},
			},
			wantErr: true,
		},
		{
			name: "unknown module",
			matrix: PermissionMatrix{
				"employee": {"billing": {View: true}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.matrix.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMatrixError(t *testing.T) {
	err := &MatrixError{Role: "superuser"}
	if err.Error() != "unknown role superuser" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	err = &MatrixError{Role: "employee", Module: "billing"}
	if err.Error() != "unknown module billing for role employee" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}
