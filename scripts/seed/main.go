// Command seed writes demo master data and a movements CSV that stage
// cleanly against it.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/odyssey-erp/stockledger/internal/masterdata"
)

func main() {
	dir := flag.String("out", "seed-data", "output directory")
	rows := flag.Int("rows", 200, "movement rows to generate")
	flag.Parse()

	if err := seed(*dir, *rows); err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("→ wrote %s and %s\n", filepath.Join(*dir, masterDataFile), filepath.Join(*dir, movementsFile))
}

const (
	masterDataFile = "masterdata.json"
	movementsFile  = "movements.csv"
)

func demoData() masterdata.Data {
	return masterdata.Data{
		Warehouses: []masterdata.Warehouse{
			{ID: "WH-CEN", Code: "CEN", Name: "Almacén Central", Aliases: []string{"central"}},
			{ID: "WH-NOR", Code: "NOR", Name: "Bodega Norte"},
			{ID: "WH-SUR", Code: "SUR", Name: "Sucursal Sur"},
		},
		Products: []masterdata.Product{
			{SKU: "HW-001", Name: "Tornillo 1/4", Category: "Ferretería", Unit: "pz"},
			{SKU: "HW-002", Name: "Tuerca 1/4", Category: "Ferretería", Unit: "pz"},
			{SKU: "EL-010", Name: "Cable THW 12", Category: "Eléctrico", Unit: "m"},
			{SKU: "PL-100", Name: "Tubo PVC 1/2", Category: "Plomería", Unit: "pz"},
		},
	}
}

func seed(dir string, rows int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data := demoData()
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, masterDataFile), raw, 0o644); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, movementsFile))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write([]string{"codigo", "almacen", "tipo", "cantidad", "fecha", "costo unitario"}); err != nil {
		return err
	}
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		product := data.Products[i%len(data.Products)]
		warehouse := data.Warehouses[i%len(data.Warehouses)]
		// Receipts outnumber issues two to one so balances stay positive.
		typ, qty := "entrada", 10+i%15
		if i%3 == 2 {
			typ, qty = "salida", 1+i%5
		}
		record := []string{
			product.SKU,
			warehouse.Name,
			typ,
			strconv.Itoa(qty),
			base.AddDate(0, 0, i/10).Format("02/01/2006"),
			fmt.Sprintf("%d,%02d", 1+i%9, i%100),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
