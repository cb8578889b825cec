package download

import "testing"

func TestDefaultCVMPlannerURLPattern(t *testing.T) {
	planner := DefaultCVMPlanner("https://dados.cvm.gov.br/")
	assignments := planner("DFP", 2020)
	if len(assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(assignments))
	}
	want := "https://dados.cvm.gov.br/dados/CIA_ABERTA/DOC/DFP/DADOS/dfp_cia_aberta_2020.zip"
	if assignments[0].URL != want {
		t.Errorf("URL = %q, want %q", assignments[0].URL, want)
	}
	if assignments[0].LocalFilename != "dfp_cia_aberta_2020.zip" {
		t.Errorf("LocalFilename = %q", assignments[0].LocalFilename)
	}
}

func TestBuildPlanRejectsUnknownDocType(t *testing.T) {
	planner := DefaultCVMPlanner("https://dados.cvm.gov.br")
	if _, err := BuildPlan(planner, []string{"BOGUS"}, []int{2020}); err == nil {
		t.Fatal("expected an error for an unknown doc type")
	}
}

func TestBuildPlanGroupsByDocType(t *testing.T) {
	planner := DefaultCVMPlanner("https://dados.cvm.gov.br")
	plan, err := BuildPlan(planner, []string{"DFP", "ITR"}, []int{2020, 2021})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.TotalURLs() != 4 {
		t.Errorf("TotalURLs() = %d, want 4", plan.TotalURLs())
	}
	if len(plan.Assignments["DFP"]) != 2 {
		t.Errorf("len(Assignments[DFP]) = %d, want 2", len(plan.Assignments["DFP"]))
	}
}
