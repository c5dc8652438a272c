package services

import (
	"context"
	"fmt"
	"io"

	"student-services/models"

	"github.com/xuri/excelize/v2"
)

const exportLimit = 10000

// ExportPayments пишет отфильтрованные платежи в xlsx.
func (s *PaymentService) ExportPayments(ctx context.Context, filter PaymentFilter, w io.Writer) error {
	var payments []models.Payment
	err := filter.apply(s.db.WithContext(ctx).Model(&models.Payment{})).
		Preload("Sender").
		Preload("ProcessedByAdmin").
		Order("created_at DESC, id DESC").
		Limit(exportLimit).
		Find(&payments).Error
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Платежи"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"№", "Дата", "Отправитель", "Телефон", "Запрошено", "Одобрено", "Статус", "Причина отказа", "Администратор", "Обработано", "Комментарий"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, p := range payments {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), p.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), p.CreatedAt.Format("02.01.2006 15:04"))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), p.Sender.FullName)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), p.Sender.Phone)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), p.RequestedAmount.InexactFloat64())
		if p.ApprovedAmount != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), p.ApprovedAmount.InexactFloat64())
		}
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), p.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), p.RejectReason)
		if p.ProcessedByAdmin != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), p.ProcessedByAdmin.FullName)
		}
		if p.ProcessedAt != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), p.ProcessedAt.Format("02.01.2006 15:04"))
		}
		f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), p.AdminNotes)
	}

	return f.Write(w)
}
