package service

import (
	"context"
	"fmt"
	"io"

	"storefront/internal/util"

	"github.com/xuri/excelize/v2"
)

const ordersSheet = "Orders"

var orderColumns = []string{
	"Order ID", "Date", "Customer", "Email", "Items", "Subtotal",
	"Shipping", "Tax", "Total", "Status", "Shipping Address",
}

// ExportOrders writes the orders matching filter as an XLSX workbook
func (b *OrderBook) ExportOrders(ctx context.Context, filter OrderFilter, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "OrderBook.ExportOrders")
	defer span.End()

	orders, err := b.List(ctx, filter)
	if err != nil {
		util.RecordError(span, err)
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(orderColumns))
	for i, c := range orderColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(ordersSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, o := range orders {
		items := 0
		for _, line := range o.Items {
			items += line.Quantity
		}
		row := []interface{}{
			o.ID,
			o.Date,
			o.CustomerName,
			o.CustomerEmail,
			items,
			o.Subtotal.InexactFloat64(),
			o.Shipping.InexactFloat64(),
			o.Tax.InexactFloat64(),
			o.Total.InexactFloat64(),
			string(o.Status),
			o.ShippingAddress,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write order %s: %w", o.ID, err)
		}
	}

	if err := f.SetColWidth(ordersSheet, "A", "D", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(ordersSheet, "K", "K", 48); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
