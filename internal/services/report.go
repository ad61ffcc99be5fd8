package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"marketplace-system/internal/entities"
	"marketplace-system/internal/repositories"
)

// Сколько строк максимум выгружается в один отчет.
const reportRowLimit = 10_000

type ReportServiceInterface interface {
	// PaymentLedger выгружает журнал платежей по комиссиям в xlsx.
	PaymentLedger(ctx context.Context) (*bytes.Buffer, error)
}

type reportService struct {
	paymentRepo repositories.PaymentRepositoryInterface
	logger      *zap.Logger
}

func NewReportService(paymentRepo repositories.PaymentRepositoryInterface, logger *zap.Logger) ReportServiceInterface {
	return &reportService{
		paymentRepo: paymentRepo,
		logger:      logger.Named("report_service"),
	}
}

func (s *reportService) PaymentLedger(ctx context.Context) (*bytes.Buffer, error) {
	transactions, _, err := s.paymentRepo.List(ctx, reportRowLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки платежей для отчета: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Не удалось закрыть файл отчета", zap.Error(err))
		}
	}()

	const sheet = "Payments"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		s.logger.Warn("Не удалось удалить лист по умолчанию", zap.Error(err))
	}

	headers := []string{"ID", "Код заказа", "Заявка", "Отклик", "Сумма", "Статус", "Создан", "Оплачен"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for rowIdx, txn := range transactions {
		paidAt := ""
		if txn.PaidAt != nil {
			paidAt = txn.PaidAt.Local().Format("2006-01-02 15:04:05")
		}
		values := []interface{}{
			txn.ID,
			txn.OrderCode,
			txn.RequestID,
			txn.ApplicationID,
			txn.Amount,
			string(txn.Status),
			txn.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			paidAt,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	// Итоговая строка по оплаченным.
	var totalPaid int64
	for _, txn := range transactions {
		if txn.Status == entities.PaymentStatusPaid {
			totalPaid += txn.Amount
		}
	}
	totalCell, _ := excelize.CoordinatesToCellName(5, len(transactions)+3)
	if err := f.SetCellValue(sheet, totalCell, totalPaid); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка записи отчета: %w", err)
	}
	return buf, nil
}
