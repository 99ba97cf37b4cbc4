package viewdata

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/uiflags"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewBaseVM_Anonymous(t *testing.T) {
	req := httptest.NewRequest("GET", "/login", nil)
	vm := NewBaseVM(req, "Sign in", "/")

	if vm.IsLoggedIn || vm.CanEdit || vm.IsAdmin {
		t.Errorf("anonymous vm = %+v", vm)
	}
	if len(vm.Nav) != 0 {
		t.Errorf("anonymous users should get no menu, got %d sections", len(vm.Nav))
	}
	if vm.SiteName == "" || vm.FooterHTML == "" {
		t.Error("branding defaults missing")
	}
	if vm.Title != "Sign in" {
		t.Errorf("Title = %q", vm.Title)
	}
}

func TestNewBaseVM_SignedIn(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/criteria/abc", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID: id.Hex(), Name: "Meena", LoginID: "meena", Role: "coordinator", Department: "IQAC",
	})
	req = req.WithContext(uiflags.WithFlags(req.Context(), uiflags.Flags{SidebarFolded: true}))

	vm := NewBaseVM(req, "Criteria", "/criteria")

	if !vm.IsLoggedIn || vm.UserID != id.Hex() || vm.LoginID != "meena" || vm.Department != "IQAC" {
		t.Errorf("user fields = %+v", vm)
	}
	if !vm.CanEdit || vm.IsAdmin {
		t.Errorf("coordinator: CanEdit=%v IsAdmin=%v", vm.CanEdit, vm.IsAdmin)
	}
	if !vm.SidebarFolded {
		t.Error("SidebarFolded not taken from ui flags")
	}
	if vm.Section != "Criteria & Metrics" {
		t.Errorf("Section = %q, want Criteria & Metrics", vm.Section)
	}

	active := 0
	for _, sec := range vm.Nav {
		for _, it := range sec.Items {
			if it.Active {
				active++
				if it.Path != "/criteria" {
					t.Errorf("active item = %q, want /criteria", it.Path)
				}
			}
			if it.Path == "/auditlog" {
				t.Error("coordinator should not see the audit log")
			}
		}
	}
	if active != 1 {
		t.Errorf("active items = %d, want 1", active)
	}
}
