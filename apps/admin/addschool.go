package main

import (
	"context"
	"fmt"

	"github.com/xmu-se/crms/core/school"
)

func (cli *commandLine) addSchool(ns school.NewSchool) error {
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	sch, err := cli.schoolSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Printf("school %d registered (%s, %s %s)\n", sch.ID, sch.Name, sch.Province, sch.City)
	return nil
}
