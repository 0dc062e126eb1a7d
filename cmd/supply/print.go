package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/iliyamo/construction-supply-tracker/internal/model"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func printRequests(rs []model.Request) {
	if len(rs) == 0 {
		fmt.Println("no requests")
		return
	}
	w := newTable()
	defer w.Flush()
	fmt.Fprintln(w, "ID\tITEM\tQTY\tPROJECT\tSTATUS\tOWNER\tPHOTO\tNOTES")
	for _, r := range rs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Item, r.Quantity, r.Project, r.Status, r.OwnerStatus, r.PhotoURL, r.Notes)
	}
}

func printComplexes(cs []model.Complex) {
	if len(cs) == 0 {
		fmt.Println("no complexes")
		return
	}
	w := newTable()
	defer w.Flush()
	fmt.Fprintln(w, "ID\tNAME")
	for _, c := range cs {
		fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
	}
}

func printUsers(us []model.User, cs []model.Complex) {
	if len(us) == 0 {
		fmt.Println("no users")
		return
	}
	names := make(map[int64]string, len(cs))
	for _, c := range cs {
		names[c.ID] = c.Name
	}
	w := newTable()
	defer w.Flush()
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tCOMPLEX\tACTIVE")
	for _, u := range us {
		site := "-"
		if u.ComplexID != nil {
			site = fmt.Sprintf("%d", *u.ComplexID)
			if n, ok := names[*u.ComplexID]; ok {
				site = n
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Role, site, u.Active)
	}
}
