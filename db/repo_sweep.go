package db

import (
	"context"
	"fmt"

	"Gin_postgres_redis_equipment_tool/config"
	"Gin_postgres_redis_equipment_tool/lifecycle"
	"Gin_postgres_redis_equipment_tool/metrics"
	"Gin_postgres_redis_equipment_tool/models"
	"Gin_postgres_redis_equipment_tool/notify"
)

type SweepResult struct {
	Overdue  []string `json:"overdue"`
	Reminded []string `json:"reminded"`
}

// SweepLoans moves issued loans past their due date to overdue and reminds
// borrowers of loans due within a day. Both updates are conditional, so a
// concurrent return wins and a loan is reminded at most once. Assets are not
// touched.
func (r *Repo) SweepLoans(ctx context.Context) (*SweepResult, error) {
	tx := r.DB.WithContext(ctx)
	now := r.now()

	var issued []models.Loan
	if err := tx.Where("status = ?", lifecycle.LoanIssued).Order("due_date ASC").Find(&issued).Error; err != nil {
		return nil, fmt.Errorf("load issued loans: %w", err)
	}

	names, err := r.equipmentNames(ctx, issued)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{}
	var events []notify.Event
	for i := range issued {
		l := &issued[i]
		switch {
		case lifecycle.DueForOverdue(l.Status, l.DueDate, now):
			q := tx.Model(&models.Loan{}).
				Where("id = ? AND status = ?", l.ID, lifecycle.LoanIssued).
				Update("status", lifecycle.LoanOverdue)
			if q.Error != nil {
				config.LogError(r.Log, "db", "SweepLoans", "mark overdue", l.Name, q.Error)
				metrics.SweepResults.WithLabelValues("error").Inc()
				continue
			}
			if q.RowsAffected == 0 {
				continue
			}
			res.Overdue = append(res.Overdue, l.Name)
			metrics.SweepResults.WithLabelValues("overdue").Inc()
			events = append(events, loanEvent(l, Actor{}, "Overdue Equipment",
				"This loan is now overdue. Please return the equipment immediately.", l.BorrowerID))

		case lifecycle.DueForReminder(l.Status, l.DueDate, now, l.RemindedAt):
			q := tx.Model(&models.Loan{}).
				Where("id = ? AND status = ? AND reminded_at IS NULL", l.ID, lifecycle.LoanIssued).
				Update("reminded_at", now)
			if q.Error != nil {
				config.LogError(r.Log, "db", "SweepLoans", "stamp reminder", l.Name, q.Error)
				metrics.SweepResults.WithLabelValues("error").Inc()
				continue
			}
			if q.RowsAffected == 0 {
				continue
			}
			res.Reminded = append(res.Reminded, l.Name)
			metrics.SweepResults.WithLabelValues("reminded").Inc()
			events = append(events, loanEvent(l, Actor{}, "Equipment Return Reminder",
				fmt.Sprintf("Reminder: Equipment %s is due tomorrow (%s).", names[l.EquipmentID], l.DueDate.Format("2006-01-02 15:04")),
				l.BorrowerID))
		}
	}

	r.dispatch(ctx, events)
	return res, nil
}

func (r *Repo) equipmentNames(ctx context.Context, ls []models.Loan) (map[string]string, error) {
	ids := make([]string, 0, len(ls))
	for _, l := range ls {
		ids = append(ids, l.EquipmentID)
	}
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var eqs []models.Equipment
	if err := r.DB.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&eqs).Error; err != nil {
		return nil, fmt.Errorf("load equipment names: %w", err)
	}
	for _, e := range eqs {
		out[e.ID] = e.Name
	}
	return out, nil
}
