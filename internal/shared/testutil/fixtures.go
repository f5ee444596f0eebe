package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CustomersCSV is a small banking customer extract with identifier columns,
// a mix of join date layouts and one unparseable date.
const CustomersCSV = `Client ID,Name,Age,Location ID,Joined Bank,Banking Contact,Nationality,Occupation,Fee Structure,Loyalty Classification,Estimated Income,Superannuation Savings,Amount of Credit Cards,Credit Card Balance,Bank Loans,Bank Deposits,Checking Accounts,Saving Accounts,Foreign Currency Account,Business Lending,Properties Owned,Risk Weighting,BRId,GenderId,IAId
IND81288,Raymond Mills,24,34324,06-05-2019,Anthony Torres,American,Safety Technician IV,High,Jade,75384.77,17677.00,1,484.54,1485.83,1031.09,1000.00,500.00,0.00,13000.00,1,2,1,1,1
IND65833,Julia Spencer,23,42205,10-12-2001,Jonathan Hawkins,African,Software Consultant,High,Jade,289834.31,22000.00,1,2256.00,5000.00,20000.00,3000.00,7000.00,500.00,51000.00,2,3,2,1,2
IND47499,Stephen Murray,27,7314,25-01-2010,Anthony Berry,European,Help Desk Operator,High,Gold,169935.23,31000.00,1,4568.00,0.00,12000.00,2500.00,0.00,0.00,45000.00,0,2,3,2,3
IND72498,Virginia Garza,40,34594,not a date,Steve Diaz,American,Geologist II,Mid,Silver,356808.11,8000.00,2,1500.00,100000.00,80000.00,10000.00,5000.00,2000.00,63000.00,3,3,4,2,4
IND60181,Melissa Sanchez,46,41269,2015-08-27,Shawn Long,Australian,Assistant Professor,High,Platinum,130711.68,2000.00,3,3000.00,20000.00,15000.00,0.00,6000.00,0.00,37000.00,1,4,1,1,5
`

// CustomersRows is the number of data rows in CustomersCSV.
const CustomersRows = 5

// CustomersReader returns CustomersCSV as a reader.
func CustomersReader() *strings.Reader {
	return strings.NewReader(CustomersCSV)
}

// WriteCustomersCSV writes CustomersCSV into a temp dir and returns its path.
func WriteCustomersCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte(CustomersCSV), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
